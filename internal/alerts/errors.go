package alerts

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument     = errors.New("alerts: invalid argument")
	ErrInvalidDate         = errors.New("alerts: invalid date")
	ErrEventNotFound       = errors.New("alerts: event not found")
	ErrDuplicateManagement = errors.New("alerts: event already managed")
	ErrStoreUnavailable    = errors.New("alerts: store unavailable")
)

// unavailable tags a driver error as ErrStoreUnavailable while keeping the cause.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
