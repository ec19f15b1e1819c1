/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/suparena/entityrepo/logger"
)

// Op names a service operation.
type Op string

const (
	OpCount      Op = "count"
	OpExists     Op = "exists"
	OpList       Op = "list"
	OpGet        Op = "get"
	OpCreate     Op = "create"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
	OpCreateBulk Op = "create bulk"
	OpUpdateBulk Op = "update bulk"
	OpDeleteBulk Op = "delete bulk"
)

// Event describes one completed service call.
type Event struct {
	Op       Op
	Type     string
	Key      string
	Affected int
	Duration time.Duration
	// Err is the error returned to the caller, nil on success.
	Err error
}

// Observer receives an Event after every service call.
type Observer interface {
	Observe(ctx context.Context, e Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event) error

func (f ObserverFunc) Observe(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// LogObserver writes every event to log, failures at warn level.
func LogObserver(log logger.Logger) Observer {
	return ObserverFunc(func(_ context.Context, e Event) error {
		kv := []any{"op", string(e.Op), "entity", e.Type, "duration", e.Duration}
		if e.Key != "" {
			kv = append(kv, "key", e.Key)
		}
		if e.Affected > 0 {
			kv = append(kv, "affected", e.Affected)
		}
		if e.Err != nil {
			log.Warn("operation failed", append(kv, "error", e.Err)...)
			return nil
		}
		log.Info("operation", kv...)
		return nil
	})
}

// notify delivers e to every observer. Observer errors and panics are logged
// and dropped.
func notify(ctx context.Context, log logger.Logger, observers []Observer, e Event) {
	for _, o := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Warn("observer panicked", "op", string(e.Op), "panic", fmt.Sprint(r))
				}
			}()
			if err := o.Observe(ctx, e); err != nil {
				log.Warn("observer failed", "op", string(e.Op), "error", err)
			}
		}()
	}
}
