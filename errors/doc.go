/*
Package errors provides the domain error taxonomy for entityrepo.

Every backend-specific fault is translated at the repository boundary into one
of the kinds below. Each kind has a sentinel usable with the standard
errors.Is() function and a typed error carrying the entity type and key:

	var (
	    ErrNotFound            = errors.New("entity not found")
	    ErrAlreadyExists       = errors.New("entity already exists")
	    ErrInvalidInput        = errors.New("invalid input")
	    ErrRepository          = errors.New("repository failure")
	    ErrInvalidArgument     = errors.New("invalid argument")
	    ErrConfigurationFormat = errors.New("invalid configuration format")
	    ErrNotImplemented      = errors.New("operation not implemented")
	    ErrService             = errors.New("service failure")
	)

Usage:

	err := repo.Update(ctx, user)
	switch {
	case errors.IsNotFound(err):
	    // the key was never persisted
	case errors.IsRepositoryError(err):
	    // backend fault; the original cause is chained
	    var re *errors.RepositoryError
	    stderrors.As(err, &re)
	    log.Printf("status=%d cause=%v", re.StatusCode, re.Err)
	}

RepositoryError and ServiceError always chain their cause, so a fault
re-wrapped by a service layer still matches the original backend error.
*/
package errors
