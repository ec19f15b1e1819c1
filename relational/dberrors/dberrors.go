/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dberrors

import (
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/suparena/entityrepo/errors"
)

// Kind classifies a relational backend fault.
type Kind int

const (
	Unknown Kind = iota
	DuplicateKey
	NotNullViolation
	ForeignKeyViolation
	CheckViolation
	DataTruncated
	InvalidTypeCast
	NoTable
	NoColumn
	NoIndex
	Connection
)

func (k Kind) String() string {
	switch k {
	case DuplicateKey:
		return "duplicate key"
	case NotNullViolation:
		return "not-null violation"
	case ForeignKeyViolation:
		return "foreign key violation"
	case CheckViolation:
		return "check constraint violation"
	case DataTruncated:
		return "data truncated"
	case InvalidTypeCast:
		return "invalid type cast"
	case NoTable:
		return "undefined table"
	case NoColumn:
		return "undefined column"
	case NoIndex:
		return "undefined index"
	case Connection:
		return "connection failure"
	default:
		return "unknown"
	}
}

var mysqlKinds = map[uint16]Kind{
	1062: DuplicateKey,
	1048: NotNullViolation,
	1216: ForeignKeyViolation,
	1217: ForeignKeyViolation,
	1451: ForeignKeyViolation,
	1452: ForeignKeyViolation,
	3819: CheckViolation,
	1265: DataTruncated,
	1406: DataTruncated,
	1146: NoTable,
	1054: NoColumn,
	1091: NoIndex,
}

var sqlStateKinds = map[string]Kind{
	"23505": DuplicateKey,
	"23502": NotNullViolation,
	"23503": ForeignKeyViolation,
	"23514": CheckViolation,
	"22001": DataTruncated,
	"42804": InvalidTypeCast,
	"22P02": InvalidTypeCast,
	"42P01": NoTable,
	"42703": NoColumn,
	"42704": NoIndex,
}

// Classify reports whether err is a recognized relational fault and which kind.
func Classify(err error) (bool, Kind) {
	if err == nil {
		return false, Unknown
	}

	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		if kind, ok := mysqlKinds[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, Unknown
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return true, sqlStateKinds[pgErr.Code]
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return true, sqlStateKinds[string(pqErr.Code)]
	}

	var connErr *pgconn.ConnectError
	if stderrors.As(err, &connErr) {
		return true, Connection
	}
	switch {
	case stderrors.Is(err, sql.ErrConnDone),
		stderrors.Is(err, sql.ErrTxDone),
		stderrors.Is(err, driver.ErrBadConn),
		stderrors.Is(err, mysql.ErrInvalidConn),
		stderrors.Is(err, pgx.ErrTxClosed):
		return true, Connection
	}

	// sqlite reports constraint failures only through the message
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "unique constraint failed"):
		return true, DuplicateKey
	case strings.Contains(s, "not null constraint failed"):
		return true, NotNullViolation
	case strings.Contains(s, "foreign key constraint failed"):
		return true, ForeignKeyViolation
	case strings.Contains(s, "check constraint failed"):
		return true, CheckViolation
	case strings.Contains(s, "no such table"):
		return true, NoTable
	case strings.Contains(s, "no such column"):
		return true, NoColumn
	case strings.Contains(s, "datatype mismatch"):
		return true, InvalidTypeCast
	}
	return false, Unknown
}

// Translate maps err onto the domain taxonomy for op on the entity of
// entityType stored under key. Duplicate keys become AlreadyExists, content
// violations become Validation and every other recognized fault becomes a
// Repository fault. Unrecognized errors, including context cancellation, are
// returned unchanged.
func Translate(op, entityType, key string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, errors.ErrDisposed) {
		return errors.NewRepositoryError(op, entityType, key, err)
	}

	ok, kind := Classify(err)
	if !ok {
		return err
	}
	switch kind {
	case DuplicateKey:
		return &errors.AlreadyExistsError{Type: entityType, Key: key, Err: err}
	case NotNullViolation, ForeignKeyViolation, CheckViolation, DataTruncated, InvalidTypeCast:
		return &errors.ValidationError{Type: entityType, Key: key, Message: kind.String(), Err: err}
	default:
		return errors.NewRepositoryError(op, entityType, key, err)
	}
}

// Fault wraps err as a Repository fault unless it already is one.
func Fault(op, entityType, key string, err error) error {
	if err == nil || errors.IsRepositoryError(err) {
		return err
	}
	return errors.NewRepositoryError(op, entityType, key, err)
}
