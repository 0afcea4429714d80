package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyType is the kind of dwelling a listing describes.
type PropertyType string

const (
	PropertyTypeSingleFamily PropertyType = "single_family"
	PropertyTypeCondo        PropertyType = "condo"
	PropertyTypeTownhouse    PropertyType = "townhouse"
	PropertyTypeMultiFamily  PropertyType = "multi_family"
	PropertyTypeLand         PropertyType = "land"
	PropertyTypeMobile       PropertyType = "mobile"
)

// ValidPropertyTypes lists every recognised property type.
var ValidPropertyTypes = []PropertyType{
	PropertyTypeSingleFamily,
	PropertyTypeCondo,
	PropertyTypeTownhouse,
	PropertyTypeMultiFamily,
	PropertyTypeLand,
	PropertyTypeMobile,
}

// IsValid reports whether t is a recognised property type.
func (t PropertyType) IsValid() bool {
	for _, v := range ValidPropertyTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
	StatusOffMarket Status = "off_market"
)

// ValidStatuses lists every recognised lifecycle status.
var ValidStatuses = []Status{StatusActive, StatusPending, StatusSold, StatusOffMarket}

// IsValid reports whether s is a recognised status.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ErrInvalidProperty wraps every schema violation reported by Validate.
var ErrInvalidProperty = errors.New("invalid property")

// Property is a stored listing. Price is in whole dollars.
type Property struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Address      string       `json:"address"`
	City         string       `gorm:"index:idx_properties_city_price,priority:1;not null" json:"city"`
	State        string       `json:"state"`
	PostalCode   string       `json:"postal_code"`
	Price        int64        `gorm:"index:idx_properties_city_price,priority:2;not null" json:"price"`
	Bedrooms     int          `gorm:"not null" json:"bedrooms"`
	Bathrooms    float64      `json:"bathrooms"`
	SquareFeet   *int         `json:"square_feet"`
	PropertyType PropertyType `gorm:"type:varchar(20);not null" json:"property_type"`
	Status       Status       `gorm:"type:varchar(20);index;not null" json:"status"`
	YearBuilt    *int         `json:"year_built"`
	Pool         bool         `json:"pool"`
	Waterfront   bool         `json:"waterfront"`
	Photos       []string     `gorm:"serializer:json;type:text" json:"photos"`
	Latitude     *float64     `json:"latitude"`
	Longitude    *float64     `json:"longitude"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// EnsureID assigns a random UUID when the property has no identifier yet.
func (p *Property) EnsureID() {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
}

// BeforeCreate is the gorm hook that fills in missing identifiers.
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	p.EnsureID()
	return nil
}

// KnownSquareFeet returns the living area and whether it is usable for arithmetic.
func (p *Property) KnownSquareFeet() (int, bool) {
	if p.SquareFeet == nil || *p.SquareFeet <= 0 {
		return 0, false
	}
	return *p.SquareFeet, true
}

// HasCoordinates reports whether both latitude and longitude are set.
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Validate checks the record against the schema the engine relies on.
func (p *Property) Validate() error {
	switch {
	case p.City == "":
		return fmt.Errorf("%w: city is required", ErrInvalidProperty)
	case p.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProperty)
	case p.Bedrooms < 0:
		return fmt.Errorf("%w: bedrooms must not be negative", ErrInvalidProperty)
	case p.Bathrooms < 0:
		return fmt.Errorf("%w: bathrooms must not be negative", ErrInvalidProperty)
	case math.Mod(p.Bathrooms*2, 1) != 0:
		return fmt.Errorf("%w: bathrooms must be a multiple of 0.5", ErrInvalidProperty)
	case p.SquareFeet != nil && *p.SquareFeet < 0:
		return fmt.Errorf("%w: square_feet must not be negative", ErrInvalidProperty)
	case !p.PropertyType.IsValid():
		return fmt.Errorf("%w: unknown property_type %q", ErrInvalidProperty, p.PropertyType)
	case !p.Status.IsValid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidProperty, p.Status)
	}
	return nil
}

// ListFilter narrows GET /properties.
type ListFilter struct {
	City   string
	Status Status
	Limit  int
}
