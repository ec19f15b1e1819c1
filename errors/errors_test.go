/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("User", "123")

	expected := `User with key "123" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestAlreadyExistsError(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := &AlreadyExistsError{Type: "Product", Key: "ABC", Err: cause}

	expected := `Product with key "ABC" already exists`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !IsAlreadyExists(err) {
		t.Error("IsAlreadyExists should return true for AlreadyExistsError")
	}

	if !errors.Is(err, cause) {
		t.Error("AlreadyExistsError should chain its backend cause")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name:     "with field",
			err:      &ValidationError{Field: "email", Message: "invalid format"},
			expected: `validation failed for field "email": invalid format`,
		},
		{
			name:     "without field",
			err:      &ValidationError{Message: "missing required fields"},
			expected: "validation failed: missing required fields",
		},
		{
			name:     "with entity",
			err:      &ValidationError{Type: "Order", Key: "7", Field: "total", Message: "must be positive"},
			expected: `validation failed of Order with key "7" for field "total": must be positive`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, tt.err.Error())
			}

			if !IsValidationError(tt.err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestRepositoryError(t *testing.T) {
	cause := errors.New("connection reset by peer")

	t.Run("MessageNamesTypeAndKey", func(t *testing.T) {
		err := NewRepositoryError("update", "Order", "42", cause)
		expected := `update of Order with key "42" failed: connection reset by peer`
		if err.Error() != expected {
			t.Errorf("Expected error message %q, got %q", expected, err.Error())
		}
	})

	t.Run("StatusCode", func(t *testing.T) {
		err := &RepositoryError{Op: "create", Type: "Order", Key: "p|r", StatusCode: 503, Err: cause}
		expected := `create of Order with key "p|r" failed (status 503): connection reset by peer`
		if err.Error() != expected {
			t.Errorf("Expected error message %q, got %q", expected, err.Error())
		}
	})

	t.Run("ChainsCause", func(t *testing.T) {
		err := NewRepositoryError("count", "Order", "", cause)
		if !IsRepositoryError(err) {
			t.Error("IsRepositoryError should return true for RepositoryError")
		}
		if !errors.Is(err, cause) {
			t.Error("RepositoryError should chain its cause")
		}
	})
}

func TestServiceErrorRoundTrip(t *testing.T) {
	cause := errors.New("throttled")
	repoErr := NewRepositoryError("retrieve", "User", "1", cause)
	err := NewServiceError("get user", repoErr)

	if !IsServiceError(err) {
		t.Error("IsServiceError should return true for ServiceError")
	}
	if !IsRepositoryError(err) {
		t.Error("ServiceError should still match the wrapped RepositoryError")
	}

	var re *RepositoryError
	if !errors.As(err, &re) {
		t.Fatal("errors.As should find the RepositoryError")
	}
	if re.Err != cause {
		t.Errorf("Expected original cause %v, got %v", cause, re.Err)
	}
}

func TestConfigFormatError(t *testing.T) {
	reasons := []ConfigFormatReason{
		MalformedConnectionString,
		UnrecognizedAccountName,
		InvalidAccountCredential,
		InvalidEndpoint,
	}

	seen := make(map[string]bool)
	for _, reason := range reasons {
		err := NewConfigFormatError(reason, "detail", nil)
		if !IsConfigurationFormat(err) {
			t.Errorf("%v should match ErrConfigurationFormat", reason)
		}
		if IsRepositoryError(err) {
			t.Errorf("%v should not match ErrRepository", reason)
		}
		got, ok := ConfigReason(fmt.Errorf("constructing store: %w", err))
		if !ok || got != reason {
			t.Errorf("Expected reason %v, got %v", reason, got)
		}
		if seen[reason.String()] {
			t.Errorf("Reason text %q is not distinct", reason.String())
		}
		seen[reason.String()] = true
	}
}

func TestArgumentAndNotImplementedErrors(t *testing.T) {
	arg := NewArgumentError("key", "must not be blank")
	if arg.Error() != `argument "key": must not be blank` {
		t.Errorf("Unexpected message %q", arg.Error())
	}
	if !IsInvalidArgument(arg) {
		t.Error("IsInvalidArgument should return true for ArgumentError")
	}

	ni := NewNotImplementedError("CreateBulk", "table store")
	if ni.Error() != "CreateBulk is not implemented by the table store backend" {
		t.Errorf("Unexpected message %q", ni.Error())
	}
	if !IsNotImplemented(ni) {
		t.Error("IsNotImplemented should return true for NotImplementedError")
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewNotFoundError("User", "123")
	wrapped := fmt.Errorf("database operation failed: %w", original)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("Wrapped NotFoundError should still match ErrNotFound")
	}

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should work with wrapped errors")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrRepository,
		ErrInvalidArgument,
		ErrConfigurationFormat,
		ErrNotImplemented,
		ErrService,
		ErrDisposed,
		ErrConcurrencyConflict,
		ErrCountOverflow,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}
