package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents an organization (tenant) in the system.
// Each organization owns its users, its private catalogue rows and its proposals.
type Organization struct {
	OrgID     uuid.UUID // UUIDv7
	Name      string
	Domain    string // defaults to "none"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultDomain is stored when an organization is created without a domain.
const DefaultDomain = "none"
