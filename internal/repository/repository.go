package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common repository errors
var (
	ErrNotFound      = &RepositoryError{Code: "NOT_FOUND", Message: "entity not found"}
	ErrAlreadyExists = &RepositoryError{Code: "ALREADY_EXISTS", Message: "entity already exists"}
	ErrNotConfigured = &RepositoryError{Code: "NOT_CONFIGURED", Message: "database not configured"}
	ErrForeignKey    = &RepositoryError{Code: "FOREIGN_KEY", Message: "referenced entity does not exist"}
)

// RepositoryError represents a repository error.
type RepositoryError struct {
	Code    string
	Message string
}

func (e *RepositoryError) Error() string {
	return e.Code + ": " + e.Message
}

// wrap maps pgx's no-rows, unique-violation and foreign-key errors to the
// repository sentinels and annotates everything else.
func wrap(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if isForeignKeyViolation(err) {
		return ErrForeignKey
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// affected turns a zero-row write into ErrNotFound.
func affected(tag pgconn.CommandTag, err error, action string) error {
	if err != nil {
		return wrap(err, action)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
