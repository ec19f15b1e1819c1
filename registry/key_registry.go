/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// KeyAccessor maps an entity key to the primary-key column values of its
// table, in primary-key order.
type KeyAccessor[K comparable] func(key K) []any

var (
	keyAccessors = make(map[reflect.Type]any)
	typeNames    = make(map[reflect.Type]string)
	mu           sync.RWMutex
)

// RegisterKeyAccessor associates entity type T with the accessor that turns its
// key into primary-key values. Registering twice replaces the accessor.
func RegisterKeyAccessor[T any, K comparable](fn KeyAccessor[K]) {
	t := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()
	keyAccessors[t] = fn
}

// GetKeyAccessor retrieves the accessor registered for T. It fails when the
// accessor was registered for a different key type.
func GetKeyAccessor[T any, K comparable]() (KeyAccessor[K], bool, error) {
	t := reflect.TypeFor[T]()

	mu.RLock()
	defer mu.RUnlock()
	raw, ok := keyAccessors[t]
	if !ok {
		return nil, false, nil
	}
	fn, ok := raw.(KeyAccessor[K])
	if !ok {
		var zero K
		return nil, true, fmt.Errorf("registry: key accessor for %v does not accept keys of type %T", t, zero)
	}
	return fn, true, nil
}

// RegisterTypeName overrides the name used for T in error messages and in the
// EntityType attribute of table store items.
func RegisterTypeName[T any](name string) {
	t := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()
	typeNames[t] = name
}

// TypeName returns the registered name of T, or its unqualified Go type name.
func TypeName[T any]() string {
	t := reflect.TypeFor[T]()

	mu.RLock()
	name, ok := typeNames[t]
	mu.RUnlock()
	if ok {
		return name
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
