package notification

import (
	"context"
	"fmt"
	"time"

	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	"github.com/google/uuid"
)

// bidData is the payload of bid-related notifications
type bidData struct {
	Bid    marketplaceapp.BidSummary  `json:"bid"`
	Load   marketplaceapp.LoadSummary `json:"load"`
	Reason string                     `json:"reason,omitempty"`
}

// Notifier turns marketplace events into user notifications
type Notifier struct {
	sink Sink
	now  func() time.Time
}

// NewNotifier creates a Notifier delivering through sink
func NewNotifier(sink Sink) *Notifier {
	return &Notifier{sink: sink, now: func() time.Time { return time.Now().UTC() }}
}

var _ marketplaceapp.Notifier = (*Notifier)(nil)

// NotifyNewBid tells the cargo owner a driver bid on their load
func (n *Notifier) NotifyNewBid(ctx context.Context, ownerID uuid.UUID, bid marketplaceapp.BidSummary, load marketplaceapp.LoadSummary) error {
	msg := fmt.Sprintf("%s bid %s %s on %q", bid.DriverName, bid.Amount.StringFixed(2), bid.Currency, load.Title)
	return n.send(ctx, ownerID, TypeNewBid, msg, bidData{Bid: bid, Load: load})
}

// NotifyBidAccepted tells the driver their bid won
func (n *Notifier) NotifyBidAccepted(ctx context.Context, driverID uuid.UUID, bid marketplaceapp.BidSummary, load marketplaceapp.LoadSummary) error {
	msg := fmt.Sprintf("Your bid on %q (%s to %s) was accepted", load.Title, load.PickupCity, load.DeliveryCity)
	return n.send(ctx, driverID, TypeBidAccepted, msg, bidData{Bid: bid, Load: load})
}

// NotifyLoadAssigned confirms the assignment to the cargo owner
func (n *Notifier) NotifyLoadAssigned(ctx context.Context, ownerID uuid.UUID, bid marketplaceapp.BidSummary, load marketplaceapp.LoadSummary) error {
	msg := fmt.Sprintf("%q was assigned to %s", load.Title, bid.DriverName)
	return n.send(ctx, ownerID, TypeLoadAssigned, msg, bidData{Bid: bid, Load: load})
}

// NotifyBidRejected tells the driver their bid was turned down
func (n *Notifier) NotifyBidRejected(ctx context.Context, driverID uuid.UUID, bid marketplaceapp.BidSummary, load marketplaceapp.LoadSummary, reason string) error {
	msg := fmt.Sprintf("Your bid on %q was not accepted", load.Title)
	return n.send(ctx, driverID, TypeBidRejected, msg, bidData{Bid: bid, Load: load, Reason: reason})
}

// NotifyCounterOffer tells the driver the owner proposed different terms
func (n *Notifier) NotifyCounterOffer(ctx context.Context, driverID uuid.UUID, bid marketplaceapp.BidSummary, load marketplaceapp.LoadSummary) error {
	msg := fmt.Sprintf("Counter offer received on %q", load.Title)
	return n.send(ctx, driverID, TypeCounterOffer, msg, bidData{Bid: bid, Load: load})
}

// NotifyBookingStatus tells a party their booking moved
func (n *Notifier) NotifyBookingStatus(ctx context.Context, userID uuid.UUID, booking marketplaceapp.BookingSummary) error {
	msg := fmt.Sprintf("Booking %s is now %s", booking.Reference, booking.Status)
	return n.send(ctx, userID, TypeBookingStatus, msg, booking)
}

func (n *Notifier) send(ctx context.Context, userID uuid.UUID, typ Type, message string, data any) error {
	return n.sink.Deliver(ctx, userID, Notification{
		ID:        uuid.New(),
		Type:      typ,
		UserID:    userID,
		Message:   message,
		Data:      data,
		CreatedAt: n.now(),
	})
}
