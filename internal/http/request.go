package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// NewValidator builds the request validator shared by the handlers. Field
// names in validation errors follow the json tag so clients see the same
// names they sent.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return validate
}

// decodeRequest parses the JSON body into dst and runs the struct validator
// over it. A false return means the response has already been written.
func decodeRequest(ctx context.Context, w http.ResponseWriter, r *http.Request, rsp responder, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rsp.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	if validate == nil {
		return true
	}
	if err := validate.StructCtx(ctx, dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			rsp.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the submitted input is invalid",
				Errors:  validationDetails(fieldErrs),
			})
			return false
		}
		rsp.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return true
}

func validationDetails(fieldErrs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		details[fieldErr.Field()] = validationMessage(fieldErr)
	}
	return details
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "is too short"
	case "max":
		return "is too long"
	case "datetime":
		return "must be a valid timestamp"
	default:
		return "is invalid"
	}
}

// parseTimestamp accepts RFC 3339 timestamps with or without fractional
// seconds. The zero time is returned for empty or unparseable values; the
// services treat zero dates as validation failures.
func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
