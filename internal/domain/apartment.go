// Package domain defines the persistence model for apartment listings. The
// types are mapped with GORM and form the core data layer of the dashboard.
package domain

import (
	"time"

	"golang.org/x/text/unicode/norm"
)

// Status is the canonical sale state of an apartment.
//
// The zero value (StatusUnknown) means the status was absent on ingress. It is
// stored as an empty string and omitted from JSON output.
type Status string

const (
	StatusUnknown   Status = ""
	StatusAvailable Status = "available"
	StatusLocked    Status = "locked"
	StatusSold      Status = "sold"
)

// Ingress literals emitted by the spreadsheet automation.
const (
	LiteralAvailable = "Sẵn hàng"
	LiteralLocked    = "Đang lock"
	LiteralSold      = "Đã bán"
)

// StatusLiterals lists the accepted ingress literals in display order.
var StatusLiterals = []string{LiteralAvailable, LiteralLocked, LiteralSold}

// ParseStatusLiteral maps an ingress literal to its canonical Status. The
// input is NFC-normalized before comparison so decomposed Vietnamese text
// matches; otherwise the comparison is exact.
func ParseStatusLiteral(s string) (Status, bool) {
	switch norm.NFC.String(s) {
	case LiteralAvailable:
		return StatusAvailable, true
	case LiteralLocked:
		return StatusLocked, true
	case LiteralSold:
		return StatusSold, true
	}
	return StatusUnknown, false
}

// Literal returns the ingress literal for s, or "" for StatusUnknown and
// unrecognized values.
func (s Status) Literal() string {
	switch s {
	case StatusAvailable:
		return LiteralAvailable
	case StatusLocked:
		return LiteralLocked
	case StatusSold:
		return LiteralSold
	}
	return ""
}

// Valid reports whether s is one of the closed set of statuses (including
// StatusUnknown).
func (s Status) Valid() bool {
	switch s {
	case StatusUnknown, StatusAvailable, StatusLocked, StatusSold:
		return true
	}
	return false
}

// Apartment is the latest known state of a single unit. There is one row per
// ID; every accepted write replaces all mutable fields and refreshes
// UpdatedAt.
//
// Fields:
//   - ID: externally assigned identifier (at most 50 runes).
//   - Agency: selling agency name (at most 100 runes).
//   - Area / Price: optional positive numbers, nil when absent.
//   - Status: canonical status code; empty when unknown.
//   - UpdatedAt: server-assigned UTC time of the last accepted write.
type Apartment struct {
	ID        string    `json:"id"               gorm:"type:varchar(50);primaryKey"`
	Agency    string    `json:"agency"           gorm:"type:varchar(100);not null"`
	Area      *float64  `json:"area"`
	Price     *float64  `json:"price"`
	Status    Status    `json:"status,omitempty" gorm:"type:varchar(16);not null;check:status IN ('','available','locked','sold')"`
	UpdatedAt time.Time `json:"updated_at"       gorm:"not null;index:idx_apartments_updated_at"`
}

// TableName returns the database table name for Apartment.
func (Apartment) TableName() string { return "apartments" }
