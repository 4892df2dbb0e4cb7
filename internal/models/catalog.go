package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Kind identifies an ownership-scoped catalogue entity type.
type Kind string

const (
	KindIndustry       Kind = "industry"
	KindService        Kind = "service"
	KindBusinessCycle  Kind = "business_cycle"
	KindFunctionalArea Kind = "functional_area"
	KindProvider       Kind = "provider"
)

// Kinds lists every catalogue kind.
var Kinds = []Kind{KindIndustry, KindService, KindBusinessCycle, KindFunctionalArea, KindProvider}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !slices.Contains(Kinds, k) {
		return "", fmt.Errorf("unknown catalogue kind %q", s)
	}
	return k, nil
}

// Ownership is shared by every catalogue row.
type Ownership struct {
	OrgID     *uuid.UUID // nil = global row
	CreatedBy *uuid.UUID // weak reference, cleared when the user is deleted
}

// Owner returns the owning organization, nil for global rows.
func (o Ownership) Owner() *uuid.UUID {
	return o.OrgID
}

// IsGlobal reports whether the row is visible to every tenant.
func (o Ownership) IsGlobal() bool {
	return o.OrgID == nil
}

// BlockList holds the organizations a global row is hidden from.
type BlockList struct {
	BlockedFor []uuid.UUID
}

// IsBlockedFor reports whether org is on the block list.
func (b BlockList) IsBlockedFor(org uuid.UUID) bool {
	return slices.Contains(b.BlockedFor, org)
}

// Block adds org to the list. Returns false if it was already present.
func (b *BlockList) Block(org uuid.UUID) bool {
	if b.IsBlockedFor(org) {
		return false
	}
	b.BlockedFor = SortIDs(append(b.BlockedFor, org))
	return true
}

// Unblock removes org from the list. Returns false if it was not present.
func (b *BlockList) Unblock(org uuid.UUID) bool {
	i := slices.Index(b.BlockedFor, org)
	if i < 0 {
		return false
	}
	b.BlockedFor = slices.Delete(b.BlockedFor, i, i+1)
	return true
}

// CatalogBase carries the identity and ownership columns of a catalogue row.
type CatalogBase struct {
	ID uuid.UUID // UUIDv7
	Ownership
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Base gives stores access to the shared columns.
func (b *CatalogBase) Base() *CatalogBase {
	return b
}

// RowID returns the row identifier.
func (b *CatalogBase) RowID() uuid.UUID {
	return b.ID
}

func (b CatalogBase) clone() CatalogBase {
	b.OrgID = CloneID(b.OrgID)
	b.CreatedBy = CloneID(b.CreatedBy)
	return b
}

// CatalogRow is implemented by every ownership-scoped entity.
type CatalogRow interface {
	Kind() Kind
	RowID() uuid.UUID
	Owner() *uuid.UUID
	// NaturalKey is unique per ownership scope.
	NaturalKey() string
	Base() *CatalogBase
	Clone() CatalogRow
}

// Blockable is implemented by catalogue rows carrying a BlockList.
type Blockable interface {
	CatalogRow
	IsBlockedFor(org uuid.UUID) bool
	Blocks() *BlockList
}

// Industry is a blockable catalogue row.
type Industry struct {
	CatalogBase
	BlockList
	Name        string
	Description string
	URL         string
}

func (i *Industry) Kind() Kind { return KindIndustry }
func (i *Industry) NaturalKey() string { return i.Name }
func (i *Industry) Blocks() *BlockList { return &i.BlockList }
func (i *Industry) Clone() CatalogRow {
	c := *i
	c.CatalogBase = i.CatalogBase.clone()
	c.BlockedFor = slices.Clone(i.BlockedFor)
	return &c
}

// Service is a catalogue row referenced by proposals.
type Service struct {
	CatalogBase
	Name        string
	Description string
}

func (s *Service) Kind() Kind { return KindService }
func (s *Service) NaturalKey() string { return s.Name }
func (s *Service) Clone() CatalogRow {
	c := *s
	c.CatalogBase = s.CatalogBase.clone()
	return &c
}

// BusinessCycle groups functional areas. Ordered by (organization, order).
type BusinessCycle struct {
	CatalogBase
	Order       int
	Name        string
	Description string
}

func (b *BusinessCycle) Kind() Kind { return KindBusinessCycle }
func (b *BusinessCycle) NaturalKey() string { return b.Name }
func (b *BusinessCycle) Clone() CatalogRow {
	c := *b
	c.CatalogBase = b.CatalogBase.clone()
	return &c
}

// FunctionalArea belongs to a business cycle and is deleted with it.
type FunctionalArea struct {
	CatalogBase
	BusinessCycleID uuid.UUID
	Order           int
	Name            string
	Description     string
}

func (f *FunctionalArea) Kind() Kind { return KindFunctionalArea }
func (f *FunctionalArea) NaturalKey() string { return f.Name }
func (f *FunctionalArea) Clone() CatalogRow {
	c := *f
	c.CatalogBase = f.CatalogBase.clone()
	return &c
}

// Provider is a vendor that can respond to proposals.
type Provider struct {
	CatalogBase
	CompanyName  string
	ContactName  string
	ContactPhone string
	ContactEmail string
}

func (p *Provider) Kind() Kind { return KindProvider }
func (p *Provider) NaturalKey() string { return p.CompanyName }
func (p *Provider) Clone() CatalogRow {
	c := *p
	c.CatalogBase = p.CatalogBase.clone()
	return &c
}

// NewCatalogRow returns an empty row of the given kind.
func NewCatalogRow(kind Kind) (CatalogRow, error) {
	switch kind {
	case KindIndustry:
		return &Industry{}, nil
	case KindService:
		return &Service{}, nil
	case KindBusinessCycle:
		return &BusinessCycle{}, nil
	case KindFunctionalArea:
		return &FunctionalArea{}, nil
	case KindProvider:
		return &Provider{}, nil
	}
	return nil, fmt.Errorf("unknown catalogue kind %q", kind)
}

var (
	_ Blockable  = (*Industry)(nil)
	_ CatalogRow = (*Service)(nil)
	_ CatalogRow = (*BusinessCycle)(nil)
	_ CatalogRow = (*FunctionalArea)(nil)
	_ CatalogRow = (*Provider)(nil)
)
