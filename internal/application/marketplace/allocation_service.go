package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AllocationService turns a winning bid into a booking. Direct acceptance and
// counter-offer acceptance share one path through allocate.
type AllocationService struct {
	collaborators
	loadRepo marketplace.LoadRepository
	bidRepo  marketplace.BidRepository
	store    marketplace.AllocationStore
	profiles marketplace.ProfileLookup
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	loadRepo marketplace.LoadRepository,
	bidRepo marketplace.BidRepository,
	store marketplace.AllocationStore,
	profiles marketplace.ProfileLookup,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		collaborators: newCollaborators(logger),
		loadRepo:      loadRepo,
		bidRepo:       bidRepo,
		store:         store,
		profiles:      profiles,
	}
}

// allocation is one acceptance attempt
type allocation struct {
	bid *marketplace.Bid
	// approverID must own the load: the caller on the direct path, the
	// counter-offer's proposer on the counter path.
	approverID uuid.UUID
	// actorID is recorded on the accepted bid and the booking.
	actorID uuid.UUID
	path    telemetry.AcceptPath
}

// AcceptBid accepts a bid on behalf of the load owner
func (s *AllocationService) AcceptBid(ctx context.Context, actor shared.Actor, bidID uuid.UUID) (*AcceptBidResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "accept_bid",
		telemetry.WithAttribute("bid_id", bidID.String()),
		telemetry.WithAttribute("actor_id", actor.ID.String()))
	defer span.End()

	bid, err := s.bidRepo.FindByID(ctx, bidID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return s.allocate(ctx, span, allocation{
		bid:        bid,
		approverID: actor.ID,
		actorID:    actor.ID,
		path:       telemetry.AcceptPathDirect,
	})
}

// RespondToCounterOffer lets the driver accept or decline a pending counter-offer.
// Accepting promotes the counter terms and runs the normal acceptance.
func (s *AllocationService) RespondToCounterOffer(ctx context.Context, actor shared.Actor, bidID uuid.UUID, req RespondCounterOfferRequest) (*CounterOfferResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "respond_counter_offer",
		telemetry.WithAttribute("bid_id", bidID.String()),
		telemetry.WithAttribute("action", req.Action))
	defer span.End()

	bid, err := s.bidRepo.FindByID(ctx, bidID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	now := s.now()

	switch req.Action {
	case CounterOfferActionDecline:
		if err := bid.DeclineCounterOffer(actor.ID, req.Reason, now); err != nil {
			s.expireOnLapse(ctx, bid, now, err)
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := s.bidRepo.SaveWithLock(ctx, bid); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		telemetry.SetOK(span)
		s.publish(ctx, bid.PullDomainEvents()...)
		return &CounterOfferResult{Bid: ToBidResponse(bid)}, nil

	case CounterOfferActionAccept:
		if err := bid.AcceptCounterOffer(actor.ID, now); err != nil {
			s.expireOnLapse(ctx, bid, now, err)
			telemetry.RecordError(span, err)
			return nil, err
		}
		result, err := s.allocate(ctx, span, allocation{
			bid:        bid,
			approverID: bid.CounterOffer.ProposedBy,
			actorID:    actor.ID,
			path:       telemetry.AcceptPathCounterOffer,
		})
		if err != nil {
			return nil, err
		}
		return &CounterOfferResult{Bid: result.Bid, Booking: &result.Booking}, nil

	default:
		err := shared.NewValidationError("action", "Action must be accept or decline")
		telemetry.RecordError(span, err)
		return nil, err
	}
}

// allocate checks the acceptance preconditions in order, then commits every
// effect in one unit of work.
func (s *AllocationService) allocate(ctx context.Context, span trace.Span, a allocation) (*AcceptBidResult, error) {
	fail := func(err error) (*AcceptBidResult, error) {
		telemetry.RecordError(span, err)
		if shared.IsConflict(err) && s.metrics != nil {
			s.metrics.RecordAllocationConflict(ctx, shared.ErrorCode(err))
		}
		return nil, err
	}

	bid := a.bid
	load, err := s.loadRepo.FindByID(ctx, bid.LoadID)
	if err != nil {
		return fail(err)
	}
	if !load.IsOwnedBy(a.approverID) {
		return fail(shared.NewForbiddenError("Only the load owner can accept bids"))
	}

	now := s.now()
	if a.path == telemetry.AcceptPathDirect {
		if err := bid.EnsureAcceptable(now); err != nil {
			if errors.Is(err, shared.ErrExpired) {
				persistExpiry(ctx, s.bidRepo, s.logger, bid, now)
			}
			return fail(err)
		}
	}
	if err := load.EnsureAssignable(); err != nil {
		return fail(err)
	}
	driver, err := s.profiles.GetParty(ctx, bid.DriverID)
	if err != nil {
		return fail(err)
	}

	if err := bid.Accept(a.actorID, now); err != nil {
		return fail(err)
	}
	if err := load.AssignDriver(bid, a.actorID, now); err != nil {
		return fail(err)
	}
	booking := marketplace.NewBookingFromAcceptance(bid, load, marketplace.NewDriverSnapshot(driver, now), a.actorID, now)

	outcome, err := s.store.CommitAcceptance(ctx, marketplace.Acceptance{
		Bid:     bid,
		Load:    load,
		Booking: booking,
		ActorID: a.actorID,
		At:      now,
	})
	if err != nil {
		s.logger.Info("Bid acceptance rejected at commit",
			zap.String("bid_id", bid.ID.String()),
			zap.String("load_id", load.ID.String()),
			zap.Error(err),
		)
		return fail(err)
	}
	telemetry.SetAttributes(span,
		"booking_id", booking.ID.String(),
		"rejected_bids", len(outcome.RejectedBids),
	)
	telemetry.SetOK(span)
	if s.metrics != nil {
		s.metrics.RecordBidAccepted(ctx, a.path)
	}

	s.afterAcceptance(ctx, bid, load, booking, outcome, a.actorID, now)

	return &AcceptBidResult{
		Bid:     ToBidResponse(bid),
		Load:    ToLoadResponse(load),
		Booking: ToBookingResponse(booking),
	}, nil
}

// afterAcceptance publishes the committed events and sends the notifications.
func (s *AllocationService) afterAcceptance(
	ctx context.Context,
	bid *marketplace.Bid,
	load *marketplace.Load,
	booking *marketplace.Booking,
	outcome marketplace.AcceptanceOutcome,
	actorID uuid.UUID,
	now time.Time,
) {
	events := bid.PullDomainEvents()
	events = append(events, load.PullDomainEvents()...)
	events = append(events, booking.PullDomainEvents()...)
	for i := range outcome.RejectedBids {
		events = append(events, marketplace.NewBidRejectedEvent(&outcome.RejectedBids[i], actorID, marketplace.ReasonAssignedToAnotherDriver))
	}
	s.publish(ctx, events...)

	bidSummary := newBidSummary(bid)
	loadSummary := newLoadSummary(load)
	s.notify(ctx, "bid_accepted", func(n Notifier) error {
		return n.NotifyBidAccepted(ctx, bid.DriverID, bidSummary, loadSummary)
	})
	s.notify(ctx, "load_assigned", func(n Notifier) error {
		return n.NotifyLoadAssigned(ctx, load.OwnerID, bidSummary, loadSummary)
	})
	for i := range outcome.RejectedBids {
		rejected := &outcome.RejectedBids[i]
		s.notify(ctx, "bid_rejected", func(n Notifier) error {
			return n.NotifyBidRejected(ctx, rejected.DriverID, newBidSummary(rejected), loadSummary, marketplace.ReasonAssignedToAnotherDriver)
		})
	}

	s.logger.Info("Bid accepted",
		zap.String("bid_id", bid.ID.String()),
		zap.String("load_id", load.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference", booking.Reference),
		zap.Int("rejected_bids", len(outcome.RejectedBids)),
		zap.Time("at", now),
	)
}

// expireOnLapse persists read-time expiry when a counter-offer response
// failed because something lapsed.
func (s *AllocationService) expireOnLapse(ctx context.Context, bid *marketplace.Bid, now time.Time, cause error) {
	if !errors.Is(cause, shared.ErrExpired) {
		return
	}
	persistExpiry(ctx, s.bidRepo, s.logger, bid, now)
}
