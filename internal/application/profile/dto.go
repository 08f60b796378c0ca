package profile

import (
	"time"

	"github.com/freightmarket/backend/internal/domain/profile"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UpsertProfileRequest represents the caller's editable profile fields.
// The role always comes from the access token.
type UpsertProfileRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Phone string `json:"phone" binding:"max=30"`
	Email string `json:"email" binding:"omitempty,email,max=200"`
}

// ProfileResponse represents a profile in API responses
type ProfileResponse struct {
	ID             uuid.UUID       `json:"id"`
	Role           string          `json:"role"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone,omitempty"`
	Email          string          `json:"email,omitempty"`
	Verified       bool            `json:"verified"`
	Available      bool            `json:"available"`
	Rating         decimal.Decimal `json:"rating"`
	RatingCount    int             `json:"rating_count"`
	CompletedJobs  int             `json:"completed_jobs"`
	TotalShipments int             `json:"total_shipments"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToProfileResponse converts a domain profile to a response
func ToProfileResponse(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		ID:             p.ID,
		Role:           string(p.Role),
		Name:           p.Name,
		Phone:          p.Phone,
		Email:          p.Email,
		Verified:       p.Verified,
		Available:      p.Available,
		Rating:         p.Rating,
		RatingCount:    p.RatingCount,
		CompletedJobs:  p.CompletedJobs,
		TotalShipments: p.TotalShipments,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
