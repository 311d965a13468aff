// Package providers holds the registry of care providers whose schedules
// the platform manages.
package providers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/curatel/telecare-scheduling/internal/availability"
)

// ErrNotFound is returned when a provider id does not exist.
var ErrNotFound = errors.New("providers: not found")

// Provider is one bookable practitioner.
type Provider struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Category  availability.Category `json:"category"`
	Timezone  string                `json:"timezone,omitempty"` // e.g. "Europe/Moscow"
	Active    bool                  `json:"active"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// NewProvider builds a provider with a fresh id and normalized fields.
func NewProvider(name string, category availability.Category) (Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Provider{}, fmt.Errorf("providers: name required")
	}
	if !ValidCategory(category) {
		return Provider{}, fmt.Errorf("providers: unknown category %q", category)
	}
	now := time.Now().UTC()
	return Provider{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidCategory reports whether the category is one the buffer policy knows.
func ValidCategory(c availability.Category) bool {
	switch c {
	case availability.CategoryPhysician,
		availability.CategoryTherapist,
		availability.CategoryDietitian,
		availability.CategoryCosmetologist:
		return true
	}
	return false
}
