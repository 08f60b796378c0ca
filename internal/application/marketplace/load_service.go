package marketplace

import (
	"context"
	"fmt"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoadService handles load posting and lifecycle operations
type LoadService struct {
	collaborators
	loadRepo marketplace.LoadRepository
	store    marketplace.AllocationStore
}

// NewLoadService creates a new LoadService
func NewLoadService(loadRepo marketplace.LoadRepository, store marketplace.AllocationStore, logger *zap.Logger) *LoadService {
	return &LoadService{
		collaborators: newCollaborators(logger),
		loadRepo:      loadRepo,
		store:         store,
	}
}

// CreateLoad posts a new load on behalf of a cargo owner
func (s *LoadService) CreateLoad(ctx context.Context, actor shared.Actor, req CreateLoadRequest) (*LoadResponse, error) {
	if !actor.IsCargoOwner() {
		return nil, shared.NewForbiddenError("Only cargo owners can post loads")
	}

	details := marketplace.LoadDetails{
		Title:       req.Title,
		Description: req.Description,
		CargoType:   req.CargoType,
		Pickup:      req.Pickup.toDomain(),
		Delivery:    req.Delivery.toDomain(),
		PickupDate:  req.PickupDate,
		WeightKg:    req.WeightKg,
		Budget:      req.Budget,
		Currency:    req.Currency,
	}
	if req.DeliveryDeadline != nil {
		details.DeliveryDeadline = *req.DeliveryDeadline
	}

	load, err := marketplace.NewLoad(actor.ID, details, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.loadRepo.Create(ctx, load); err != nil {
		return nil, err
	}

	s.publish(ctx, load.PullDomainEvents()...)
	s.logger.Info("Load posted",
		zap.String("load_id", load.ID.String()),
		zap.String("owner_id", actor.ID.String()),
	)

	response := ToLoadResponse(load)
	return &response, nil
}

// GetLoad retrieves a load by ID
func (s *LoadService) GetLoad(ctx context.Context, loadID uuid.UUID) (*LoadResponse, error) {
	load, err := s.loadRepo.FindByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	response := ToLoadResponse(load)
	return &response, nil
}

// ListLoads retrieves loads with filtering and pagination
func (s *LoadService) ListLoads(ctx context.Context, filter LoadListFilter) ([]LoadResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]interface{}),
	}.Normalize()

	if filter.Status != "" {
		status := marketplace.LoadStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("status", fmt.Sprintf("Unknown load status %q", filter.Status))
		}
		domainFilter.Filters["status"] = status
	}
	if filter.OwnerID != nil {
		domainFilter.Filters["owner_id"] = *filter.OwnerID
	}
	if filter.OpenOnly {
		domainFilter.Filters["open_only"] = true
	}

	loads, total, err := s.loadRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]LoadResponse, len(loads))
	for i := range loads {
		responses[i] = ToLoadResponse(&loads[i])
	}
	return responses, total, nil
}

// CancelLoad withdraws an unassigned load and rejects every live bid on it
func (s *LoadService) CancelLoad(ctx context.Context, actor shared.Actor, loadID uuid.UUID, req CancelLoadRequest) (*LoadResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "load", "cancel",
		telemetry.WithAttribute("load_id", loadID.String()))
	defer span.End()

	load, err := s.loadRepo.FindByID(ctx, loadID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	if err := load.Cancel(actor.ID, req.Reason, now); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rejected, err := s.store.CommitCancellation(ctx, marketplace.Cancellation{
		Load:    load,
		ActorID: actor.ID,
		At:      now,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "rejected_bids", len(rejected))
	telemetry.SetOK(span)

	events := load.PullDomainEvents()
	for i := range rejected {
		events = append(events, marketplace.NewBidRejectedEvent(&rejected[i], actor.ID, marketplace.ReasonLoadCancelled))
	}
	s.publish(ctx, events...)

	summary := newLoadSummary(load)
	for i := range rejected {
		bid := &rejected[i]
		s.notify(ctx, "bid_rejected", func(n Notifier) error {
			return n.NotifyBidRejected(ctx, bid.DriverID, newBidSummary(bid), summary, marketplace.ReasonLoadCancelled)
		})
	}

	s.logger.Info("Load cancelled",
		zap.String("load_id", load.ID.String()),
		zap.Int("rejected_bids", len(rejected)),
	)

	response := ToLoadResponse(load)
	return &response, nil
}

// CloseLoad marks a delivered load as completed
func (s *LoadService) CloseLoad(ctx context.Context, actor shared.Actor, loadID uuid.UUID) (*LoadResponse, error) {
	load, err := s.loadRepo.FindByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if err := load.Close(actor.ID, s.now()); err != nil {
		return nil, err
	}
	if err := s.loadRepo.SaveWithLock(ctx, load); err != nil {
		return nil, err
	}

	response := ToLoadResponse(load)
	return &response, nil
}
