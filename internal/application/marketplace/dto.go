package marketplace

import (
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Load DTOs ====================

// LocationInput is a route point in requests
type LocationInput struct {
	Address   string   `json:"address" binding:"max=300"`
	City      string   `json:"city" binding:"max=100"`
	Region    string   `json:"region" binding:"max=100"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" binding:"omitempty,longitude"`
}

func (in LocationInput) toDomain() marketplace.Location {
	return marketplace.Location{
		Address:   in.Address,
		City:      in.City,
		Region:    in.Region,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
}

// CreateLoadRequest represents a request to post a load
type CreateLoadRequest struct {
	Title            string          `json:"title" binding:"required,max=200"`
	Description      string          `json:"description" binding:"max=2000"`
	CargoType        string          `json:"cargo_type" binding:"max=100"`
	Pickup           LocationInput   `json:"pickup"`
	Delivery         LocationInput   `json:"delivery"`
	PickupDate       time.Time       `json:"pickup_date" binding:"required"`
	DeliveryDeadline *time.Time      `json:"delivery_deadline"`
	WeightKg         decimal.Decimal `json:"weight_kg"`
	Budget           decimal.Decimal `json:"budget"`
	Currency         string          `json:"currency"`
}

// CancelLoadRequest represents a request to cancel a load
type CancelLoadRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// LoadListFilter represents filter options for load lists
type LoadListFilter struct {
	Status   string     `form:"status"`
	OwnerID  *uuid.UUID `form:"owner_id"`
	OpenOnly bool       `form:"open_only"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LoadResponse represents a load in API responses
type LoadResponse struct {
	ID               uuid.UUID            `json:"id"`
	OwnerID          uuid.UUID            `json:"owner_id"`
	Title            string               `json:"title"`
	Description      string               `json:"description,omitempty"`
	CargoType        string               `json:"cargo_type,omitempty"`
	Pickup           marketplace.Location `json:"pickup"`
	Delivery         marketplace.Location `json:"delivery"`
	PickupDate       time.Time            `json:"pickup_date"`
	DeliveryDeadline *time.Time           `json:"delivery_deadline,omitempty"`
	WeightKg         decimal.Decimal      `json:"weight_kg"`
	Budget           decimal.Decimal      `json:"budget"`
	Currency         string               `json:"currency"`
	Status           string               `json:"status"`
	BidCount         int                  `json:"bid_count"`
	AssignedDriverID *uuid.UUID           `json:"assigned_driver_id,omitempty"`
	AcceptedBidID    *uuid.UUID           `json:"accepted_bid_id,omitempty"`
	AcceptedAmount   *decimal.Decimal     `json:"accepted_amount,omitempty"`
	AssignedAt       *time.Time           `json:"assigned_at,omitempty"`
	CancelledAt      *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason     string               `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	Version          int                  `json:"version"`
}

// ToLoadResponse converts a domain load to a response
func ToLoadResponse(l *marketplace.Load) LoadResponse {
	resp := LoadResponse{
		ID:               l.ID,
		OwnerID:          l.OwnerID,
		Title:            l.Title,
		Description:      l.Description,
		CargoType:        l.CargoType,
		Pickup:           l.Pickup,
		Delivery:         l.Delivery,
		PickupDate:       l.PickupDate,
		WeightKg:         l.WeightKg,
		Budget:           l.Budget,
		Currency:         l.Currency,
		Status:           string(l.Status),
		BidCount:         l.BidCount,
		AssignedDriverID: l.AssignedDriverID,
		AcceptedBidID:    l.AcceptedBidID,
		AcceptedAmount:   l.AcceptedAmount,
		AssignedAt:       l.AssignedAt,
		CancelledAt:      l.CancelledAt,
		CancelReason:     l.CancelReason,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
		Version:          l.Version,
	}
	if !l.DeliveryDeadline.IsZero() {
		deadline := l.DeliveryDeadline
		resp.DeliveryDeadline = &deadline
	}
	return resp
}

// ==================== Bid DTOs ====================

// VehicleInput describes the offered vehicle
type VehicleInput struct {
	Type        string          `json:"type" validate:"required,oneof=pickup van light_truck medium_truck heavy_truck trailer refrigerated flatbed tanker"`
	PlateNumber string          `json:"plate_number" validate:"max=20"`
	CapacityKg  decimal.Decimal `json:"capacity_kg"`
}

// PricingInput itemizes a bid amount
type PricingInput struct {
	BaseRate    decimal.Decimal `json:"base_rate"`
	FuelCost    decimal.Decimal `json:"fuel_cost"`
	TollCost    decimal.Decimal `json:"toll_cost"`
	LoadingCost decimal.Decimal `json:"loading_cost"`
	OtherCost   decimal.Decimal `json:"other_cost"`
}

// SubmitBidRequest is the raw bid payload checked by BidValidator
type SubmitBidRequest struct {
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency" validate:"omitempty,len=3,uppercase,alpha"`
	ProposedPickupDate   time.Time       `json:"proposed_pickup_date" validate:"required"`
	ProposedDeliveryDate time.Time       `json:"proposed_delivery_date" validate:"required"`
	Vehicle              VehicleInput    `json:"vehicle"`
	AdditionalServices   []string        `json:"additional_services" validate:"max=10,dive,oneof=loading unloading packing insurance tracking express"`
	Pricing              *PricingInput   `json:"pricing"`
	PaymentTerms         string          `json:"payment_terms"`
	Message              string          `json:"message" validate:"max=1000"`
}

// RejectBidRequest represents a request to reject a bid
type RejectBidRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// WithdrawBidRequest represents a request to withdraw a bid
type WithdrawBidRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CounterOfferRequest represents an owner counter-offer
type CounterOfferRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	PickupDate   *time.Time      `json:"pickup_date"`
	DeliveryDate *time.Time      `json:"delivery_date"`
	Message      string          `json:"message"`
}

// Counter-offer response actions
const (
	CounterOfferActionAccept  = "accept"
	CounterOfferActionDecline = "decline"
)

// RespondCounterOfferRequest represents the driver's answer to a counter-offer
type RespondCounterOfferRequest struct {
	Action string `json:"action" binding:"required,oneof=accept decline"`
	Reason string `json:"reason" binding:"max=500"`
}

// BidListFilter represents filter options for bid lists
type BidListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// BidResponse represents a bid in API responses
type BidResponse struct {
	ID                   uuid.UUID                       `json:"id"`
	LoadID               uuid.UUID                       `json:"load_id"`
	DriverID             uuid.UUID                       `json:"driver_id"`
	CargoOwnerID         uuid.UUID                       `json:"cargo_owner_id"`
	Amount               decimal.Decimal                 `json:"amount"`
	Currency             string                          `json:"currency"`
	ProposedPickupDate   time.Time                       `json:"proposed_pickup_date"`
	ProposedDeliveryDate time.Time                       `json:"proposed_delivery_date"`
	Vehicle              marketplace.VehicleDetails      `json:"vehicle"`
	AdditionalServices   []marketplace.AdditionalService `json:"additional_services"`
	Pricing              marketplace.PricingBreakdown    `json:"pricing"`
	PaymentTerms         string                          `json:"payment_terms"`
	Message              string                          `json:"message,omitempty"`
	Status               string                          `json:"status"`
	SubmittedAt          time.Time                       `json:"submitted_at"`
	ViewedAt             *time.Time                      `json:"viewed_at,omitempty"`
	ViewCount            int                             `json:"view_count"`
	RespondedAt          *time.Time                      `json:"responded_at,omitempty"`
	ExpiresAt            time.Time                       `json:"expires_at"`
	AcceptedAt           *time.Time                      `json:"accepted_at,omitempty"`
	AcceptedBy           *uuid.UUID                      `json:"accepted_by,omitempty"`
	RejectionReason      string                          `json:"rejection_reason,omitempty"`
	Driver               marketplace.DriverSnapshot      `json:"driver"`
	Load                 marketplace.LoadSnapshot        `json:"load"`
	Response             *marketplace.BidResponse        `json:"response,omitempty"`
	CounterOffer         *marketplace.CounterOffer       `json:"counter_offer,omitempty"`
	History              []marketplace.StatusChange      `json:"history"`
	Version              int                             `json:"version"`
}

// ToBidResponse converts a domain bid to a response
func ToBidResponse(b *marketplace.Bid) BidResponse {
	services := b.AdditionalServices
	if services == nil {
		services = []marketplace.AdditionalService{}
	}
	return BidResponse{
		ID:                   b.ID,
		LoadID:               b.LoadID,
		DriverID:             b.DriverID,
		CargoOwnerID:         b.CargoOwnerID,
		Amount:               b.Amount,
		Currency:             b.Currency,
		ProposedPickupDate:   b.ProposedPickupDate,
		ProposedDeliveryDate: b.ProposedDeliveryDate,
		Vehicle:              b.Vehicle,
		AdditionalServices:   services,
		Pricing:              b.Pricing,
		PaymentTerms:         string(b.PaymentTerms),
		Message:              b.Message,
		Status:               string(b.Status),
		SubmittedAt:          b.SubmittedAt,
		ViewedAt:             b.ViewedAt,
		ViewCount:            b.ViewCount,
		RespondedAt:          b.RespondedAt,
		ExpiresAt:            b.ExpiresAt,
		AcceptedAt:           b.AcceptedAt,
		AcceptedBy:           b.AcceptedBy,
		RejectionReason:      b.RejectionReason,
		Driver:               b.DriverSnapshot,
		Load:                 b.LoadSnapshot,
		Response:             b.Response,
		CounterOffer:         b.CounterOffer,
		History:              b.History.Entries(),
		Version:              b.Version,
	}
}

// ToBidResponses converts a slice of bids
func ToBidResponses(bids []marketplace.Bid) []BidResponse {
	responses := make([]BidResponse, len(bids))
	for i := range bids {
		responses[i] = ToBidResponse(&bids[i])
	}
	return responses
}

// ==================== Booking DTOs ====================

// GeoPointInput is an optional coordinate on a status update
type GeoPointInput struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// UpdateBookingStatusRequest represents a booking status change
type UpdateBookingStatusRequest struct {
	Status   string         `json:"status" binding:"required"`
	Notes    string         `json:"notes"`
	Location *GeoPointInput `json:"location"`
}

// SubmitRatingRequest represents a post-completion rating
type SubmitRatingRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// ProofOfDeliveryRequest asks for a presigned upload URL
type ProofOfDeliveryRequest struct {
	FileName    string `json:"file_name" binding:"required,max=200"`
	ContentType string `json:"content_type" binding:"required,oneof=image/jpeg image/png application/pdf"`
}

// ProofOfDeliveryResponse is the presigned upload target
type ProofOfDeliveryResponse struct {
	UploadURL  string    `json:"upload_url"`
	StorageKey string    `json:"storage_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ProofOfDeliveryLink is a presigned download URL for the delivery document
type ProofOfDeliveryLink struct {
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// BookingListFilter represents filter options for booking lists
type BookingListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID                 uuid.UUID                    `json:"id"`
	Reference          string                       `json:"reference"`
	LoadID             uuid.UUID                    `json:"load_id"`
	BidID              uuid.UUID                    `json:"bid_id"`
	DriverID           uuid.UUID                    `json:"driver_id"`
	CargoOwnerID       uuid.UUID                    `json:"cargo_owner_id"`
	Job                marketplace.JobSnapshot      `json:"job"`
	Driver             marketplace.DriverSnapshot   `json:"driver"`
	Vehicle            marketplace.VehicleDetails   `json:"vehicle"`
	AgreedAmount       decimal.Decimal              `json:"agreed_amount"`
	Currency           string                       `json:"currency"`
	PaymentTerms       string                       `json:"payment_terms"`
	Status             string                       `json:"status"`
	AssignedAt         time.Time                    `json:"assigned_at"`
	StartedAt          *time.Time                   `json:"started_at,omitempty"`
	ActualPickupDate   *time.Time                   `json:"actual_pickup_date,omitempty"`
	ActualDeliveryDate *time.Time                   `json:"actual_delivery_date,omitempty"`
	CompletedAt        *time.Time                   `json:"completed_at,omitempty"`
	CancelledAt        *time.Time                   `json:"cancelled_at,omitempty"`
	CancelledBy        *uuid.UUID                   `json:"cancelled_by,omitempty"`
	CancellationReason string                       `json:"cancellation_reason,omitempty"`
	HasProofOfDelivery bool                         `json:"has_proof_of_delivery"`
	Timeline           []marketplace.TrackingUpdate `json:"timeline"`
	History            []marketplace.StatusChange   `json:"history"`
	DriverRating       *marketplace.Rating          `json:"driver_rating,omitempty"`
	OwnerRating        *marketplace.Rating          `json:"owner_rating,omitempty"`
	Version            int                          `json:"version"`
}

// ToBookingResponse converts a domain booking to a response
func ToBookingResponse(b *marketplace.Booking) BookingResponse {
	timeline := b.Timeline
	if timeline == nil {
		timeline = []marketplace.TrackingUpdate{}
	}
	return BookingResponse{
		ID:                 b.ID,
		Reference:          b.Reference,
		LoadID:             b.LoadID,
		BidID:              b.BidID,
		DriverID:           b.DriverID,
		CargoOwnerID:       b.CargoOwnerID,
		Job:                b.Job,
		Driver:             b.Driver,
		Vehicle:            b.Vehicle,
		AgreedAmount:       b.AgreedAmount,
		Currency:           b.Currency,
		PaymentTerms:       string(b.PaymentTerms),
		Status:             string(b.Status),
		AssignedAt:         b.AssignedAt,
		StartedAt:          b.StartedAt,
		ActualPickupDate:   b.ActualPickupDate,
		ActualDeliveryDate: b.ActualDeliveryDate,
		CompletedAt:        b.CompletedAt,
		CancelledAt:        b.CancelledAt,
		CancelledBy:        b.CancelledBy,
		CancellationReason: b.CancellationReason,
		HasProofOfDelivery: b.ProofOfDeliveryKey != "",
		Timeline:           timeline,
		History:            b.History.Entries(),
		DriverRating:       b.DriverRating,
		OwnerRating:        b.OwnerRating,
		Version:            b.Version,
	}
}

// ToBookingResponses converts a slice of bookings
func ToBookingResponses(bookings []marketplace.Booking) []BookingResponse {
	responses := make([]BookingResponse, len(bookings))
	for i := range bookings {
		responses[i] = ToBookingResponse(&bookings[i])
	}
	return responses
}

// ==================== Allocation results ====================

// AcceptBidResult is the outcome of a successful acceptance
type AcceptBidResult struct {
	Bid     BidResponse     `json:"bid"`
	Load    LoadResponse    `json:"load"`
	Booking BookingResponse `json:"booking"`
}

// CounterOfferResult is the outcome of a driver's answer to a counter-offer.
// Booking is set only when the counter-offer was accepted.
type CounterOfferResult struct {
	Bid     BidResponse      `json:"bid"`
	Booking *BookingResponse `json:"booking,omitempty"`
}

// RatingResult reports a stored rating and the target's refreshed aggregate
type RatingResult struct {
	BookingID     uuid.UUID       `json:"booking_id"`
	TargetID      uuid.UUID       `json:"target_id"`
	Score         int             `json:"score"`
	AverageRating decimal.Decimal `json:"average_rating"`
	RatingCount   int             `json:"rating_count"`
}
