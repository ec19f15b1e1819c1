// Package service layers application-facing calls over a repository.
//
// Repository faults are re-wrapped as errors.ServiceError with the original
// chained, so errors.IsRepositoryError and errors.As still reach the backend
// cause. Observers receive an Event per call; their failures are logged at
// warn level and never change what the caller sees.
package service
