package profile

import (
	"strings"
	"time"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeProfile is the aggregate type name
const AggregateTypeProfile = "Profile"

// Profile is the local read model of a marketplace participant. Its ID is the
// user ID issued by the identity service.
type Profile struct {
	shared.BaseAggregateRoot
	Role           shared.Role
	Name           string
	Phone          string
	Email          string
	Verified       bool
	Available      bool
	Rating         decimal.Decimal
	RatingCount    int
	CompletedJobs  int
	TotalShipments int
}

// Details is the user-editable part of a profile
type Details struct {
	Role  shared.Role
	Name  string
	Phone string
	Email string
}

func (d Details) validate() error {
	var verrs shared.ValidationErrors
	if !d.Role.IsValid() {
		verrs.Add("role", "Role must be driver, cargo_owner or admin")
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		verrs.Add("name", "Name cannot be empty")
	} else if len([]rune(name)) > 100 {
		verrs.Add("name", "Name cannot exceed 100 characters")
	}
	if len(d.Phone) > 30 {
		verrs.Add("phone", "Phone cannot exceed 30 characters")
	}
	return verrs.Err()
}

// NewProfile creates a profile for userID. New drivers start available.
func NewProfile(userID uuid.UUID, d Details, now time.Time) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("user_id", "User ID cannot be empty")
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	p := &Profile{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Role:              d.Role,
		Name:              strings.TrimSpace(d.Name),
		Phone:             strings.TrimSpace(d.Phone),
		Email:             strings.TrimSpace(d.Email),
		Available:         d.Role == shared.RoleDriver,
		Rating:            decimal.Zero,
	}
	p.ID = userID
	return p, nil
}

// UpdateDetails replaces the editable fields. The role cannot change once set.
func (p *Profile) UpdateDetails(d Details, now time.Time) error {
	if d.Role == "" {
		d.Role = p.Role
	}
	if err := d.validate(); err != nil {
		return err
	}
	if d.Role != p.Role {
		return shared.NewConflictError("Profile role cannot be changed")
	}
	p.Name = strings.TrimSpace(d.Name)
	p.Phone = strings.TrimSpace(d.Phone)
	p.Email = strings.TrimSpace(d.Email)
	p.Touch(now)
	return nil
}

// ApplyRatingSummary stores an already-aggregated rating, rounded to 1 decimal place.
func (p *Profile) ApplyRatingSummary(avg decimal.Decimal, count int, now time.Time) {
	p.Rating = avg.Round(1)
	p.RatingCount = count
	p.Touch(now)
}
