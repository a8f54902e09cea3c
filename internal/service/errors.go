package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/handmade_shop/internal/repo"
)

var (
	ErrValidation        = errors.New("validation")         // 400
	ErrNotFound          = errors.New("not found")          // 404
	ErrOutOfStock        = errors.New("out of stock")       // 409
	ErrInvalidTransition = errors.New("invalid transition") // 409
	ErrInvalidState      = errors.New("invalid state")      // 409
	ErrAlreadyDeleted    = errors.New("already deleted")    // 409
	ErrConflict          = errors.New("conflict")           // 409
	ErrForbidden         = errors.New("forbidden")          // 403
	ErrUnauthorized      = errors.New("unauthorized")       // 401
	ErrTooManyRequests   = errors.New("too many requests")  // 429
)

// OutOfStockError names the product that could not be reserved.
type OutOfStockError struct {
	ProductID uuid.UUID
	Name      string
	Available int
	Requested int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: %q has %d left, %d requested", e.Name, e.Available, e.Requested)
}

func (e *OutOfStockError) Is(target error) bool { return target == ErrOutOfStock }

// notFound turns gorm's record-not-found into ErrNotFound and passes other errors through.
func notFound(err error, what string) error {
	if repo.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
