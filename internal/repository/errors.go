package repository

import (
	"fmt"

	"go-pos-ledger/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound        = errors.New("product not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrConcurrentModification = errors.New("concurrent modification, retry the request")
	ErrPersistence            = errors.New("persistence failure")
)

// InsufficientStockError names the product whose conditional decrement was refused.
type InsufficientStockError struct {
	Kind      model.ProductKind `json:"product_type"`
	ProductID uint              `json:"product_id"`
	Name      string            `json:"name"`
	Requested int               `json:"requested"`
	Available int               `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = "product"
	}
	return fmt.Sprintf("Insufficient stock for %s", name)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PersistenceError wraps a failed storage call with the operation that issued it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// classify maps a raw storage error onto the ledger taxonomy. Errors that are
// already part of the taxonomy pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrConcurrentModification),
		errors.Is(err, ErrPersistence):
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514": // check_violation: stock >= 0
			return ErrInsufficientStock
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return errors.Wrap(ErrConcurrentModification, op)
		}
	}
	return &PersistenceError{Op: op, Err: errors.WithStack(err)}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
