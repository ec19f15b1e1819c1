/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an update or delete targets an absent key
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to create an entity that already exists
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when the backend rejects the content of an entity
	ErrInvalidInput = errors.New("invalid input")

	// ErrRepository is the catch-all for backend and connectivity faults
	ErrRepository = errors.New("repository failure")

	// ErrInvalidArgument is returned when a caller passes a missing or blank required argument
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfigurationFormat is returned when a connection string cannot be parsed
	ErrConfigurationFormat = errors.New("invalid configuration format")

	// ErrNotImplemented is returned for operations a backend does not support
	ErrNotImplemented = errors.New("operation not implemented")

	// ErrService marks failures re-raised by a service layer
	ErrService = errors.New("service failure")

	// ErrDisposed is returned when a closed session is used
	ErrDisposed = errors.New("session has been disposed")

	// ErrConcurrencyConflict is returned when a write affects fewer rows than expected
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrCountOverflow is returned when a count does not fit in a 32-bit signed integer
	ErrCountOverflow = errors.New("count exceeds 32-bit signed range")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
	Err  error
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

func (e *AlreadyExistsError) Unwrap() error {
	return e.Err
}

// ValidationError represents entity content rejected by validation or by the backend.
// Type and Key are set when the failing entity is known.
type ValidationError struct {
	Type    string
	Key     string
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	subject := ""
	if e.Type != "" {
		subject = fmt.Sprintf(" of %s with key %q", e.Type, e.Key)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed%s for field %q: %s", subject, e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed%s: %s", subject, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RepositoryError is a backend fault re-raised at the repository boundary.
// It always chains the original fault.
type RepositoryError struct {
	Op   string
	Type string
	Key  string
	// StatusCode is the raw backend status code, when the backend reports one.
	StatusCode int
	Err        error
}

func (e *RepositoryError) Error() string {
	msg := fmt.Sprintf("%s of %s", e.Op, e.Type)
	if e.Key != "" {
		msg += fmt.Sprintf(" with key %q", e.Key)
	}
	msg += " failed"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RepositoryError) Is(target error) bool {
	return target == ErrRepository
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// ArgumentError reports a violated caller contract, such as a nil entity or blank key.
type ArgumentError struct {
	Name    string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %q: %s", e.Name, e.Message)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// ConfigFormatReason distinguishes connection string parse failures.
type ConfigFormatReason int

const (
	MalformedConnectionString ConfigFormatReason = iota + 1
	UnrecognizedAccountName
	InvalidAccountCredential
	InvalidEndpoint
)

func (r ConfigFormatReason) String() string {
	switch r {
	case MalformedConnectionString:
		return "malformed connection string"
	case UnrecognizedAccountName:
		return "unrecognized account name"
	case InvalidAccountCredential:
		return "invalid account credential"
	case InvalidEndpoint:
		return "invalid endpoint url"
	default:
		return "unknown configuration error"
	}
}

// ConfigFormatError is raised while parsing a table store connection string.
type ConfigFormatError struct {
	Reason ConfigFormatReason
	Detail string
	Err    error
}

func (e *ConfigFormatError) Error() string {
	if e.Detail == "" {
		return e.Reason.String()
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func (e *ConfigFormatError) Is(target error) bool {
	return target == ErrConfigurationFormat
}

func (e *ConfigFormatError) Unwrap() error {
	return e.Err
}

// NotImplementedError reports an operation a backend cannot perform.
type NotImplementedError struct {
	Operation string
	Backend   string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s is not implemented by the %s backend", e.Operation, e.Backend)
}

func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

// ServiceError wraps a repository fault at the service layer. The original
// error stays reachable through errors.Is and errors.As.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewRepositoryError creates a RepositoryError chaining cause
func NewRepositoryError(op, entityType, key string, cause error) error {
	return &RepositoryError{Op: op, Type: entityType, Key: key, Err: cause}
}

// NewArgumentError creates a new ArgumentError
func NewArgumentError(name, message string) error {
	return &ArgumentError{Name: name, Message: message}
}

// NewConfigFormatError creates a new ConfigFormatError
func NewConfigFormatError(reason ConfigFormatReason, detail string, cause error) error {
	return &ConfigFormatError{Reason: reason, Detail: detail, Err: cause}
}

// NewNotImplementedError creates a new NotImplementedError
func NewNotImplementedError(operation, backend string) error {
	return &NotImplementedError{Operation: operation, Backend: backend}
}

// NewServiceError creates a ServiceError chaining cause
func NewServiceError(op string, cause error) error {
	return &ServiceError{Op: op, Err: cause}
}

// KeyString renders a key for error messages.
func KeyString(key any) string {
	if s, ok := key.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(key)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRepositoryError checks if an error is a repository fault
func IsRepositoryError(err error) bool {
	return errors.Is(err, ErrRepository)
}

// IsInvalidArgument checks if an error is a caller contract violation
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsConfigurationFormat checks if an error is a connection string format error
func IsConfigurationFormat(err error) bool {
	return errors.Is(err, ErrConfigurationFormat)
}

// IsNotImplemented checks if an error reports an unsupported operation
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// IsServiceError checks if an error was raised by a service layer
func IsServiceError(err error) bool {
	return errors.Is(err, ErrService)
}

// ConfigReason returns the reason of a ConfigFormatError in err's chain.
func ConfigReason(err error) (ConfigFormatReason, bool) {
	var cfe *ConfigFormatError
	if errors.As(err, &cfe) {
		return cfe.Reason, true
	}
	return 0, false
}
