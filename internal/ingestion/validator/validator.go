// Package validator decodes and validates post payloads. Field errors are
// reported per JSON field name.
package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/postsearch/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets callers match validation failures with errors.Is.
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidatePayload checks that every required field is present.
func ValidatePayload(p *ingestion.PostPayload) error {
	if p == nil {
		return &ValidationError{Fields: map[string]string{"payload": "payload is required"}}
	}
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating payload: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return &ValidationError{Fields: fields}
}

// DecodePayload parses data as a single post payload. Syntax and type errors
// wrap apperrors.ErrMalformedJSON.
func DecodePayload(data []byte) (*ingestion.PostPayload, error) {
	var p ingestion.PostPayload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after post", apperrors.ErrMalformedJSON)
	}
	return &p, nil
}

// DecodeDocument decodes and validates data into an index document. Nothing
// is returned unless the whole payload is acceptable.
func DecodeDocument(data []byte) (index.Document, error) {
	p, err := DecodePayload(data)
	if err != nil {
		return index.Document{}, err
	}
	if err := ValidatePayload(p); err != nil {
		return index.Document{}, err
	}
	return p.Document(), nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
