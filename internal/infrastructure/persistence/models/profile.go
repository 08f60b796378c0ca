package models

import (
	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/profile"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProfileModel is the persistence model for the Profile aggregate root.
// The ID column is the identity service's user ID.
type ProfileModel struct {
	AggregateModel
	Role           string          `gorm:"type:varchar(20);not null;index"`
	Name           string          `gorm:"type:varchar(100);not null"`
	Phone          string          `gorm:"type:varchar(30)"`
	Email          string          `gorm:"type:varchar(200)"`
	Verified       bool            `gorm:"not null;default:false"`
	Available      bool            `gorm:"not null;default:false"`
	Rating         decimal.Decimal `gorm:"type:decimal(3,1);not null;default:0"`
	RatingCount    int             `gorm:"not null;default:0"`
	CompletedJobs  int             `gorm:"not null;default:0"`
	TotalShipments int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "profiles"
}

// ToDomain converts the persistence model to a domain Profile entity.
func (m *ProfileModel) ToDomain() *profile.Profile {
	return &profile.Profile{
		BaseAggregateRoot: m.aggregateRoot(),
		Role:              shared.Role(m.Role),
		Name:              m.Name,
		Phone:             m.Phone,
		Email:             m.Email,
		Verified:          m.Verified,
		Available:         m.Available,
		Rating:            m.Rating,
		RatingCount:       m.RatingCount,
		CompletedJobs:     m.CompletedJobs,
		TotalShipments:    m.TotalShipments,
	}
}

// ToParty converts the persistence model to the marketplace's view of a participant.
func (m *ProfileModel) ToParty() *marketplace.PartyProfile {
	return &marketplace.PartyProfile{
		ID:            m.ID,
		Role:          shared.Role(m.Role),
		Name:          m.Name,
		Phone:         m.Phone,
		Email:         m.Email,
		Rating:        m.Rating,
		RatingCount:   m.RatingCount,
		Verified:      m.Verified,
		CompletedJobs: m.CompletedJobs,
		Available:     m.Available,
	}
}

// FromDomain populates the persistence model from a domain Profile entity.
func (m *ProfileModel) FromDomain(p *profile.Profile) {
	m.setAggregateRoot(p.BaseAggregateRoot)
	m.Role = string(p.Role)
	m.Name = p.Name
	m.Phone = p.Phone
	m.Email = p.Email
	m.Verified = p.Verified
	m.Available = p.Available
	m.Rating = p.Rating
	m.RatingCount = p.RatingCount
	m.CompletedJobs = p.CompletedJobs
	m.TotalShipments = p.TotalShipments
}

// ProfileModelFromDomain creates a new persistence model from a domain Profile
func ProfileModelFromDomain(p *profile.Profile) *ProfileModel {
	m := &ProfileModel{}
	m.FromDomain(p)
	return m
}
