// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

// Package validation provides struct validation using go-playground/validator v10.
//
// A thread-safe singleton validator instance is shared across the server;
// validator caches struct metadata, so one instance is both correct and
// fast. Used for configuration validation at startup and for upload query
// parameter structs in the API layer.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError describes a single failed field with a readable message.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// Error returns the human-readable message.
func (e *FieldError) Error() string {
	return e.Message
}

// StructError is the collection of field errors for one validated struct.
type StructError struct {
	fields []FieldError
}

// Fields returns the individual field errors.
func (se *StructError) Fields() []FieldError {
	return se.fields
}

// Error implements the error interface with a combined message.
func (se *StructError) Error() string {
	if len(se.fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(se.fields))
	for _, f := range se.fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct validates a struct using its `validate` tags.
// Returns nil when valid, or a *StructError describing every failed field.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError (nil pointer, non-struct) is a programming
		// error; surface it unchanged.
		return err
	}

	se := &StructError{}
	for _, fe := range verrs {
		se.fields = append(se.fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: messageFor(fe),
		})
	}
	return se
}

// messageFor builds a readable message for one field error.
func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
