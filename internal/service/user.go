package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"prstocks-api/internal/model"
	"prstocks-api/internal/repository"
	"prstocks-api/pkg/logger"
)

// UserService handles device-tracked accounts.
type UserService struct {
	repo repository.UserRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, log *zap.Logger) *UserService {
	return &UserService{
		repo: repo,
		log:  log.Named("[users]"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

// Create registers a user. The optional device seeds the device list and
// last_login starts at the creation time.
func (s *UserService) Create(ctx context.Context, in model.UserCreate) (*model.CreatedUser, error) {
	now := s.now()

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = model.DefaultUserCategory
	}

	devices := []string{}
	if in.Device != "" {
		devices = append(devices, in.Device)
	}

	u := &model.User{
		Username:  in.Username,
		Category:  category,
		Subteam:   in.Subteam,
		Devices:   devices,
		LastLogin: &now,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info("user created",
		logger.String("username", u.Username),
		logger.Int64("user_id", u.ID))

	return &model.CreatedUser{UserID: u.ID, Message: "User created successfully"}, nil
}

// Delete removes a user by id.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Login records a device login and returns the user summary.
func (s *UserService) Login(ctx context.Context, in model.DeviceLogin) (*model.LoginResult, error) {
	now := s.now()

	u, err := s.repo.UpdateByUsername(ctx, in.Username, func(u *model.User) {
		RecordLogin(u, in.Device, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("device login",
		logger.String("username", u.Username),
		logger.String("device", in.Device),
		logger.Int("devices", len(u.Devices)))

	return &model.LoginResult{
		UserID:   u.ID,
		Username: u.Username,
		Category: u.Category,
		Subteam:  u.Subteam,
	}, nil
}

// Verify succeeds when the username exists. Regular users have no stored
// password.
func (s *UserService) Verify(ctx context.Context, in model.UserVerify) error {
	_, err := s.repo.GetByUsername(ctx, in.Username)
	return err
}
