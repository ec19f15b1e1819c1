/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"math"
	"reflect"
	"strings"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/registry"
)

// KeyValidator is implemented by compound keys that can report which part is missing.
type KeyValidator interface {
	Validate() error
}

// TypeName returns the name used for T in error messages.
func TypeName[T any]() string {
	return registry.TypeName[T]()
}

// CheckKey rejects zero and blank keys.
func CheckKey[K comparable](key K) error {
	if v, ok := any(key).(KeyValidator); ok {
		return v.Validate()
	}
	var zero K
	if key == zero {
		return errors.NewArgumentError("key", "must not be empty")
	}
	if s, ok := any(key).(string); ok && strings.TrimSpace(s) == "" {
		return errors.NewArgumentError("key", "must not be blank")
	}
	return nil
}

// CheckEntity rejects nil entities and entities without a usable key.
func CheckEntity[T Entity[K], K comparable](entity T) error {
	if isNil(entity) {
		return errors.NewArgumentError("entity", "must not be nil")
	}
	return CheckKey(entity.Key())
}

// CheckBatch rejects empty batches and batches holding invalid entities.
func CheckBatch[T Entity[K], K comparable](entities []T) error {
	if len(entities) == 0 {
		return errors.NewArgumentError("entities", "must not be empty")
	}
	for _, e := range entities {
		if err := CheckEntity[T, K](e); err != nil {
			return err
		}
	}
	return nil
}

// CheckCount narrows a backend count to int, failing when it exceeds the
// 32-bit signed range.
func CheckCount(n int64, entityType string) (int, error) {
	if n > math.MaxInt32 || n < 0 {
		return 0, errors.NewRepositoryError("count", entityType, "", errors.ErrCountOverflow)
	}
	return int(n), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
