package store

import (
	"errors"

	"github.com/wolfeidau/rfpcore/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrRowNotFound   = errors.New("catalogue row not found")
	ErrNotGlobal     = errors.New("block lists apply to global rows only")
	ErrNotBlockable  = errors.New("catalogue kind has no block list")
	ErrAlreadyLinked = errors.New("already linked")
	ErrNotLinked     = errors.New("not linked")
)

// MembershipFunc computes a user's new role and groups from the locked
// current state. Returning false leaves the stored state untouched.
type MembershipFunc func(current models.Membership) (models.Membership, bool)

// EntriesFunc computes a proposal's new free-form lists from the locked
// current lists.
type EntriesFunc func(current models.Entries) (models.Entries, error)

// SnapshotFunc builds a finalized record from a proposal read inside the
// finalize transaction.
type SnapshotFunc func(rfp *models.GeneratedRFP) (*models.FinalizedRFP, error)
