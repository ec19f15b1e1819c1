// Package dberrors classifies relational driver faults from mysql, postgres
// (lib/pq and pgx) and sqlite and translates them into entityrepo error kinds.
package dberrors
