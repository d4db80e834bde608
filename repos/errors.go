package repos

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun/driver/pgdriver"
)

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports a primary key or unique constraint conflict.
func IsUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}

	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsSerializationFailure reports a conflict that is safe to retry.
func IsSerializationFailure(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		return code == "40001" || code == "40P01"
	}

	return err != nil && strings.Contains(err.Error(), "database is locked")
}
