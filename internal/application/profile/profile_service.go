package profile

import (
	"context"
	"errors"
	"time"

	"github.com/freightmarket/backend/internal/domain/profile"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileService manages the local participant profiles
type ProfileService struct {
	repo   profile.ProfileRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewProfileService creates a new ProfileService
func NewProfileService(repo profile.ProfileRepository, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source
func (s *ProfileService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// UpsertMyProfile creates the caller's profile on first use and updates it afterwards
func (s *ProfileService) UpsertMyProfile(ctx context.Context, actor shared.Actor, req UpsertProfileRequest) (*ProfileResponse, error) {
	details := profile.Details{
		Role:  actor.Role,
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	}
	now := s.now()

	p, err := s.repo.FindByID(ctx, actor.ID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		p, err = profile.NewProfile(actor.ID, details, now)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Profile created",
			zap.String("user_id", actor.ID.String()),
			zap.String("role", string(actor.Role)),
		)
	case err != nil:
		return nil, err
	default:
		if err := p.UpdateDetails(details, now); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	response := ToProfileResponse(p)
	return &response, nil
}

// GetProfile returns a participant's public profile
func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*ProfileResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProfileResponse(p)
	return &response, nil
}
