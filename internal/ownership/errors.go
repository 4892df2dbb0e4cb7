package ownership

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	ErrDuplicateInScope       = errors.New("duplicate in scope")
	ErrReferencedRowProtected = errors.New("referenced row protected")
	ErrMissingOwner           = errors.New("missing owner")
)

// DuplicateInScopeError reports a natural key already used inside one
// ownership scope.
type DuplicateInScopeError struct {
	Entity Relation
	Scope  Scope
	Key    string
}

func (e *DuplicateInScopeError) Error() string {
	return fmt.Sprintf("%s %q already exists in %s scope", e.Entity, e.Key, e.Scope)
}

func (e *DuplicateInScopeError) Is(target error) bool {
	return target == ErrDuplicateInScope
}

// ReferencedRowProtectedError reports a delete blocked by a live reference.
type ReferencedRowProtectedError struct {
	Entity       Relation
	ID           uuid.UUID
	ReferencedBy Relation
	Constraint   string
}

func (e *ReferencedRowProtectedError) Error() string {
	return fmt.Sprintf("cannot delete %s %s: still referenced by %s (%s)",
		e.Entity, e.ID, e.ReferencedBy, e.Constraint)
}

func (e *ReferencedRowProtectedError) Is(target error) bool {
	return target == ErrReferencedRowProtected
}

// MissingOwnerError reports an operation that requires a determinate
// organization on a record that has none.
type MissingOwnerError struct {
	Op     string
	Entity Relation
	ID     uuid.UUID
}

func (e *MissingOwnerError) Error() string {
	return fmt.Sprintf("%s: %s %s has no owning organization", e.Op, e.Entity, e.ID)
}

func (e *MissingOwnerError) Is(target error) bool {
	return target == ErrMissingOwner
}
