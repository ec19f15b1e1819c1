/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/suparena/entityrepo/errors"
)

// Validator checks entity content against `validate` struct tags before a
// write reaches the backend. Automatic per-write checking can be suspended
// for the duration of a bulk attach loop.
type Validator struct {
	validate  *validator.Validate
	suspended int
}

// NewValidator returns a Validator with automatic checking enabled.
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Automatic reports whether per-write checking is on.
func (v *Validator) Automatic() bool {
	return v != nil && v.suspended == 0
}

// Suspend turns per-write checking off until the returned restore func runs.
// Suspensions nest.
func (v *Validator) Suspend() (restore func()) {
	if v == nil {
		return func() {}
	}
	v.suspended++
	restored := false
	return func() {
		if !restored {
			restored = true
			v.suspended--
		}
	}
}

// Check validates entity when automatic checking is on.
func (v *Validator) Check(entity any, entityType, key string) error {
	if !v.Automatic() {
		return nil
	}
	return v.check(entity, entityType, key)
}

// CheckAll validates every entity regardless of suspension. Bulk writes call
// it once for the whole batch.
func CheckAll[T Entity[K], K comparable](v *Validator, entities []T) error {
	if v == nil {
		return nil
	}
	entityType := TypeName[T]()
	for _, e := range entities {
		if err := v.check(e, entityType, errors.KeyString(e.Key())); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) check(entity any, entityType, key string) error {
	if v == nil || !isStruct(entity) {
		return nil
	}
	err := v.validate.Struct(entity)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &errors.ValidationError{
			Type:    entityType,
			Key:     key,
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed on the %q rule", fe.Tag()),
			Err:     err,
		}
	}
	return &errors.ValidationError{Type: entityType, Key: key, Message: err.Error(), Err: err}
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}
