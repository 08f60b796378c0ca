package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BidService handles bid submission, reads and single-bid transitions.
// Acceptance lives in AllocationService.
type BidService struct {
	collaborators
	loadRepo  marketplace.LoadRepository
	bidRepo   marketplace.BidRepository
	store     marketplace.AllocationStore
	profiles  marketplace.ProfileLookup
	validator *BidValidator
	config    Config
}

// NewBidService creates a new BidService
func NewBidService(
	loadRepo marketplace.LoadRepository,
	bidRepo marketplace.BidRepository,
	store marketplace.AllocationStore,
	profiles marketplace.ProfileLookup,
	config Config,
	logger *zap.Logger,
) *BidService {
	return &BidService{
		collaborators: newCollaborators(logger),
		loadRepo:      loadRepo,
		bidRepo:       bidRepo,
		store:         store,
		profiles:      profiles,
		validator:     NewBidValidator(config.DefaultCurrency),
		config:        config,
	}
}

// SubmitBid validates and records a driver's bid on a load
func (s *BidService) SubmitBid(ctx context.Context, actor shared.Actor, loadID uuid.UUID, req SubmitBidRequest) (*BidResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bid", "submit",
		telemetry.WithAttribute("load_id", loadID.String()),
		telemetry.WithAttribute("driver_id", actor.ID.String()))
	defer span.End()

	if !actor.IsDriver() {
		err := shared.NewForbiddenError("Only drivers can submit bids")
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	validated, err := s.validator.Validate(req, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	load, err := s.loadRepo.FindByID(ctx, loadID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	profile, err := s.profiles.GetParty(ctx, actor.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	exists, err := s.bidRepo.ExistsActive(ctx, load.ID, actor.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		err := shared.NewDomainError(shared.CodeDuplicateBid, "You already have an active bid on this load")
		telemetry.RecordError(span, err)
		return nil, err
	}

	bid, err := marketplace.NewBid(load, marketplace.NewDriverSnapshot(profile, now), validated.Terms, now, s.config.BidExpiry)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := load.RegisterBid(now); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.store.CommitSubmission(ctx, bid, load); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "bid_id", bid.ID.String())
	telemetry.SetOK(span)

	if validated.PaymentTermsDefaulted {
		s.logger.Info("Unknown payment terms defaulted",
			zap.String("bid_id", bid.ID.String()),
			zap.String("submitted", req.PaymentTerms),
			zap.String("applied", string(bid.PaymentTerms)),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordBidSubmitted(ctx, bid.Currency, string(bid.Vehicle.Type), bid.Amount)
	}

	s.publish(ctx, bid.PullDomainEvents()...)
	s.notify(ctx, "new_bid", func(n Notifier) error {
		return n.NotifyNewBid(ctx, load.OwnerID, newBidSummary(bid), newLoadSummary(load))
	})

	response := ToBidResponse(bid)
	return &response, nil
}

// GetBidsForLoad lists bids on a load. The owner sees every bid; a driver
// sees only their own.
func (s *BidService) GetBidsForLoad(ctx context.Context, actor shared.Actor, loadID uuid.UUID, status string) ([]BidResponse, error) {
	load, err := s.loadRepo.FindByID(ctx, loadID)
	if err != nil {
		return nil, err
	}

	// Lazy expiry can move a live bid into the requested status, so a
	// filtered read also loads the live bids and filters after expiry.
	var filter marketplace.BidStatus
	var statuses []marketplace.BidStatus
	if status != "" {
		filter = marketplace.BidStatus(status)
		if !filter.IsValid() {
			return nil, shared.NewValidationError("status", fmt.Sprintf("Unknown bid status %q", status))
		}
		statuses = append([]marketplace.BidStatus{filter}, marketplace.ActiveBidStatuses...)
	}

	bids, err := s.bidRepo.FindByLoad(ctx, load.ID, statuses...)
	if err != nil {
		return nil, err
	}

	now := s.now()
	visible := make([]marketplace.Bid, 0, len(bids))
	for i := range bids {
		bid := &bids[i]
		if !load.IsOwnedBy(actor.ID) && bid.DriverID != actor.ID {
			continue
		}
		s.applyExpiry(ctx, bid, now)
		if filter != "" && bid.Status != filter {
			continue
		}
		visible = append(visible, *bid)
	}
	return ToBidResponses(visible), nil
}

// GetCompetitiveAnalysis summarizes the live bids on a load
func (s *BidService) GetCompetitiveAnalysis(ctx context.Context, loadID uuid.UUID) (*marketplace.CompetitiveAnalysis, error) {
	load, err := s.loadRepo.FindByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	bids, err := s.bidRepo.FindByLoad(ctx, load.ID, marketplace.ActiveBidStatuses...)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range bids {
		bids[i].ExpireIfDue(now)
	}
	analysis := marketplace.AnalyzeBids(bids, load.Currency)
	return &analysis, nil
}

// GetBid returns one bid to its driver or the load owner. An owner read
// counts as a view.
func (s *BidService) GetBid(ctx context.Context, actor shared.Actor, bidID uuid.UUID) (*BidResponse, error) {
	bid, err := s.findVisibleBid(ctx, actor, bidID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	s.applyExpiry(ctx, bid, now)
	if bid.CargoOwnerID == actor.ID {
		if err := bid.MarkViewed(actor.ID, now); err == nil {
			if err := s.bidRepo.SaveWithLock(ctx, bid); err != nil {
				s.logger.Warn("Failed to record bid view",
					zap.String("bid_id", bid.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	response := ToBidResponse(bid)
	return &response, nil
}

// MarkAsViewed records an explicit owner view
func (s *BidService) MarkAsViewed(ctx context.Context, actor shared.Actor, bidID uuid.UUID) (*BidResponse, error) {
	return toBidResponse(s.mutate(ctx, bidID, func(bid *marketplace.Bid, now time.Time) error {
		return bid.MarkViewed(actor.ID, now)
	}))
}

// RejectBid declines a bid with a reason
func (s *BidService) RejectBid(ctx context.Context, actor shared.Actor, bidID uuid.UUID, req RejectBidRequest) (*BidResponse, error) {
	bid, err := s.mutate(ctx, bidID, func(bid *marketplace.Bid, now time.Time) error {
		return bid.Reject(actor.ID, req.Reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, "bid_rejected", func(n Notifier) error {
		return n.NotifyBidRejected(ctx, bid.DriverID, newBidSummary(bid), loadSummaryFromSnapshot(bid), bid.RejectionReason)
	})
	return toBidResponse(bid, nil)
}

// WithdrawBid retracts a bid on behalf of its driver
func (s *BidService) WithdrawBid(ctx context.Context, actor shared.Actor, bidID uuid.UUID, req WithdrawBidRequest) (*BidResponse, error) {
	return toBidResponse(s.mutate(ctx, bidID, func(bid *marketplace.Bid, now time.Time) error {
		return bid.Withdraw(actor.ID, req.Reason, now)
	}))
}

// ShortlistBid marks a bid for later comparison
func (s *BidService) ShortlistBid(ctx context.Context, actor shared.Actor, bidID uuid.UUID) (*BidResponse, error) {
	return toBidResponse(s.mutate(ctx, bidID, func(bid *marketplace.Bid, now time.Time) error {
		return bid.Shortlist(actor.ID, now)
	}))
}

// ReviewBid moves a bid into under_review
func (s *BidService) ReviewBid(ctx context.Context, actor shared.Actor, bidID uuid.UUID) (*BidResponse, error) {
	return toBidResponse(s.mutate(ctx, bidID, func(bid *marketplace.Bid, now time.Time) error {
		return bid.Review(actor.ID, now)
	}))
}

// ProposeCounterOffer records owner-proposed terms for the driver to answer
func (s *BidService) ProposeCounterOffer(ctx context.Context, actor shared.Actor, bidID uuid.UUID, req CounterOfferRequest) (*BidResponse, error) {
	terms := marketplace.CounterTerms{
		Amount:  req.Amount,
		Message: req.Message,
	}
	if req.PickupDate != nil {
		terms.PickupDate = *req.PickupDate
	}
	if req.DeliveryDate != nil {
		terms.DeliveryDate = *req.DeliveryDate
	}

	bid, err := s.mutate(ctx, bidID, func(bid *marketplace.Bid, now time.Time) error {
		return bid.ProposeCounterOffer(actor.ID, terms, now, s.config.CounterOfferExpiry)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, "counter_offer", func(n Notifier) error {
		return n.NotifyCounterOffer(ctx, bid.DriverID, newBidSummary(bid), loadSummaryFromSnapshot(bid))
	})
	return toBidResponse(bid, nil)
}

// ListMyBids lists the calling driver's bids
func (s *BidService) ListMyBids(ctx context.Context, actor shared.Actor, filter BidListFilter) ([]BidResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}.Normalize()
	if filter.Status != "" {
		st := marketplace.BidStatus(filter.Status)
		if !st.IsValid() {
			return nil, 0, shared.NewValidationError("status", fmt.Sprintf("Unknown bid status %q", filter.Status))
		}
		domainFilter.Filters["status"] = st
	}

	bids, total, err := s.bidRepo.FindByDriver(ctx, actor.ID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range bids {
		s.applyExpiry(ctx, &bids[i], now)
	}
	return ToBidResponses(bids), total, nil
}

func (s *BidService) findVisibleBid(ctx context.Context, actor shared.Actor, bidID uuid.UUID) (*marketplace.Bid, error) {
	bid, err := s.bidRepo.FindByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.DriverID != actor.ID && bid.CargoOwnerID != actor.ID {
		return nil, shared.NewForbiddenError("You are not a party to this bid")
	}
	return bid, nil
}

// mutate loads a bid, applies read-time expiry, runs op and saves the result
// with a version check.
func (s *BidService) mutate(ctx context.Context, bidID uuid.UUID, op func(bid *marketplace.Bid, now time.Time) error) (*marketplace.Bid, error) {
	bid, err := s.bidRepo.FindByID(ctx, bidID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	s.applyExpiry(ctx, bid, now)
	if err := op(bid, now); err != nil {
		return nil, err
	}
	if err := s.bidRepo.SaveWithLock(ctx, bid); err != nil {
		return nil, err
	}

	s.publish(ctx, bid.PullDomainEvents()...)
	return bid, nil
}

func toBidResponse(bid *marketplace.Bid, err error) (*BidResponse, error) {
	if err != nil {
		return nil, err
	}
	response := ToBidResponse(bid)
	return &response, nil
}

// applyExpiry persists read-time expiry. When the save loses a race the
// caller still sees the expired view; the stored row belongs to the winner.
func (s *BidService) applyExpiry(ctx context.Context, bid *marketplace.Bid, now time.Time) {
	persistExpiry(ctx, s.bidRepo, s.logger, bid, now)
}

func persistExpiry(ctx context.Context, repo marketplace.BidRepository, logger *zap.Logger, bid *marketplace.Bid, now time.Time) {
	if !bid.ExpireIfDue(now) {
		return
	}
	if err := repo.SaveWithLock(ctx, bid); err != nil {
		logger.Warn("Failed to persist bid expiry",
			zap.String("bid_id", bid.ID.String()),
			zap.String("status", string(bid.Status)),
			zap.Error(err),
		)
	}
}
