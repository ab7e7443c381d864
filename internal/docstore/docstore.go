// Package docstore is the document-store boundary: one JSON document per key,
// read with Get, written only through merge semantics. Failures are classified
// into a closed set of kinds so callers never inspect driver errors.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// Document is a flat field map persisted as JSON.
type Document map[string]any

// ErrNotFound signals document absence. Absence is an expected condition for
// callers (it marks a first-ever reconciliation), not a failure.
var ErrNotFound = errors.New("docstore: document not found")

type ErrorKind string

const (
	// KindTransient covers temporary unavailability; safe to retry.
	KindTransient ErrorKind = "transient"
	// KindPermission covers authorization rejections; retrying cannot succeed.
	KindPermission ErrorKind = "permission-denied"
	// KindInternal covers everything else.
	KindInternal ErrorKind = "internal"
)

type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("docstore: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindTransient
}

func IsPermissionDenied(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindPermission
}

// Store reads and merge-writes documents. MergeWrite only touches the named
// fields, leaving any other stored fields intact, so repeated application of
// the same payload converges to the same stored state.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	MergeWrite(ctx context.Context, collection, id string, fields Document) error
}
