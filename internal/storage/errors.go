package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/dossier-backend/internal/data/repos"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
)

type Reason string

const (
	ReasonNotFound    Reason = "not_found"
	ReasonTimeout     Reason = "timeout"
	ReasonCanceled    Reason = "canceled"
	ReasonUnavailable Reason = "unavailable"
)

// StorageError is the single failure type the storage client returns.
type StorageError struct {
	Op     string
	Reason Reason
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed (%s): %v", e.Op, e.Reason, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Reason: classify(err), Err: err}
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, repos.ErrDossierNotFound), errors.Is(err, objectstore.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonUnavailable
	}
}

// IsNotFound reports whether err is a StorageError for a missing row or object.
func IsNotFound(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Reason == ReasonNotFound
}
