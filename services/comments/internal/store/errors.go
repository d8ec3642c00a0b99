package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors shared by every store implementation. Callers match them
// with errors.Is; implementations wrap them with context.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrIntegrity        = errors.New("integrity violation")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// mapPgErr translates driver errors into the store sentinels.
func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23503" || pgErr.Code == "23505":
			return fmt.Errorf("%w: %s", ErrIntegrity, pgErr.ConstraintName)
		case pgErr.Code == "23514" || pgErr.Code == "22001":
			return fmt.Errorf("%w: %s", ErrValidation, pgErr.Message)
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == "53300", pgErr.Code == "57P01", pgErr.Code == "57P03":
			return fmt.Errorf("%w: %s", ErrStoreUnavailable, pgErr.Message)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
