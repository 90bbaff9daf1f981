package session

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Classification определяет, можно ли повторить операцию после ошибки.
type Classification int

const (
	// NonRetriable — ошибка постоянная, повторять бессмысленно
	NonRetriable Classification = iota

	// Retriable — ошибка временная, операцию можно повторить
	Retriable
)

// Classify классифицирует ошибку PostgreSQL. Временными считаются
// ошибки соединения и конфликты сериализации; всё остальное, включая
// ошибки, не относящиеся к PostgreSQL, — постоянными.
func Classify(err error) Classification {
	if err == nil {
		return NonRetriable
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return NonRetriable
	}

	switch {
	case pgerrcode.IsConnectionException(pgErr.Code):
		return Retriable
	case pgErr.Code == pgerrcode.SerializationFailure,
		pgErr.Code == pgerrcode.DeadlockDetected,
		pgErr.Code == pgerrcode.LockNotAvailable:
		return Retriable
	}
	return NonRetriable
}
