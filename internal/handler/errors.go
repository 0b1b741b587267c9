package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"prstocks-api/internal/model"
	"prstocks-api/pkg/apierror"
	"prstocks-api/pkg/logger"
	"prstocks-api/pkg/response"
	"prstocks-api/pkg/validator"
)

const maxBodyBytes = 1 << 20

// writeError maps domain errors onto API errors. Anything unrecognised is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var apiErr *apierror.Error
	var domainErr *model.Error

	switch {
	case errors.As(err, &apiErr):
		response.Error(w, apiErr)
	case errors.As(err, &domainErr) && errors.Is(err, model.ErrNotFound):
		response.Error(w, apierror.NotFound(domainErr.Message))
	case errors.As(err, &domainErr) && errors.Is(err, model.ErrConflict):
		response.Error(w, apierror.Conflict(domainErr.Message))
	case errors.As(err, &domainErr) && errors.Is(err, model.ErrValidation):
		response.Error(w, apierror.ValidationError(domainErr.Message))
	default:
		log.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.ErrorF(err))
		response.Error(w, apierror.InternalError(""))
	}
}

// decodeJSON reads a JSON body into dst and runs struct validation.
// strict rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required")
		}
		return apierror.BadRequest(fmt.Sprintf("invalid JSON: %v", err))
	}

	if errs := validator.ValidateStruct(dst); len(errs) > 0 {
		details := make([]apierror.FieldError, 0, len(errs))
		for _, e := range errs {
			details = append(details, apierror.FieldError{
				Field:   e.FailedField,
				Message: fieldMessage(e),
			})
		}
		return apierror.ValidationError("request validation failed", details...)
	}
	return nil
}

func fieldMessage(e *validator.ErrorResponse) string {
	switch e.Tag {
	case "required":
		return "field required"
	case "notblank":
		return "must not be blank"
	}
	if e.Value != "" {
		return fmt.Sprintf("failed %s=%s", e.Tag, e.Value)
	}
	return "failed " + e.Tag
}

// pathID parses an integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apierror.ValidationError(fmt.Sprintf("%s must be an integer", name))
	}
	return id, nil
}
