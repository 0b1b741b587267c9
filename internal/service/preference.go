package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prstocks-api/internal/model"
	"prstocks-api/internal/repository"
	"prstocks-api/pkg/logger"
)

var emptyPreferences = json.RawMessage(`{}`)

// PreferenceService stores one opaque JSON object per key. The key is a
// username, or a device id on the legacy routes; both share one namespace.
type PreferenceService struct {
	repo repository.PreferenceRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(repo repository.PreferenceRepository, log *zap.Logger) *PreferenceService {
	return &PreferenceService{
		repo: repo,
		log:  log.Named("[preferences]"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// parsePreferences checks that stored text is a JSON object. ok is false
// for anything else, including an empty column.
func parsePreferences(raw []byte) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}

// Get returns the stored blob. A missing key yields an empty object rather
// than an error; so does stored text that is not a JSON object.
func (s *PreferenceService) Get(ctx context.Context, key string) (*model.Preference, error) {
	p, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &model.Preference{Username: key, Preferences: emptyPreferences}, nil
	}
	p.Preferences = s.decode(p.Username, p.Preferences)
	return p, nil
}

// Set replaces the whole blob stored under key.
func (s *PreferenceService) Set(ctx context.Context, key string, blob json.RawMessage) (string, error) {
	compact, err := compactObject(blob)
	if err != nil {
		return "", err
	}
	if err := s.repo.Upsert(ctx, key, compact, s.now()); err != nil {
		return "", err
	}

	s.log.Debug("preferences saved", logger.String("key", key), logger.Int("bytes", len(compact)))
	return fmt.Sprintf("Preferences updated for user %s", key), nil
}

// Delete drops the blob stored under key.
func (s *PreferenceService) Delete(ctx context.Context, key string) (string, error) {
	if err := s.repo.Delete(ctx, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("Preferences deleted for user %s", key), nil
}

// List returns every stored blob.
func (s *PreferenceService) List(ctx context.Context) ([]model.Preference, error) {
	prefs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range prefs {
		prefs[i].Preferences = s.decode(prefs[i].Username, prefs[i].Preferences)
	}
	return prefs, nil
}

func (s *PreferenceService) decode(key string, raw []byte) json.RawMessage {
	blob, ok := parsePreferences(raw)
	if !ok {
		s.log.Warn("stored preferences are not a JSON object, returning empty",
			logger.String("key", key))
		return emptyPreferences
	}
	return blob
}

func compactObject(blob json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, model.ErrPreferencesNotAnObject
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, model.ErrPreferencesNotAnObject
	}
	return buf.Bytes(), nil
}
