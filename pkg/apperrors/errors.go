// Package apperrors defines the error taxonomy shared by all services.
// Handlers decide HTTP status codes with errors.Is against these sentinels.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSystem            = errors.New("system error")
)

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func InvalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func InsufficientStockf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInsufficientStock, fmt.Sprintf(format, args...))
}

func Unauthorizedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// Systemf wraps an underlying storage or infrastructure failure. The cause is
// kept in the chain so logs can still see it.
func Systemf(err error, msg string) error {
	return fmt.Errorf("%w: %s: %v", ErrSystem, msg, err)
}

// Wrap passes taxonomy errors through untouched and folds anything else
// (storage failures, transaction aborts) into SystemError.
func Wrap(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrSystem):
		return err
	default:
		return Systemf(err, msg)
	}
}
