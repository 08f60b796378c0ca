package marketplace

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a payload does not specify one
const DefaultCurrency = "KES"

// Free-text caps
const (
	MaxMessageLength = 1000
	MaxReviewLength  = 1000
	MaxNoteLength    = 500
)

// Location is a named point on a route
type Location struct {
	Address   string   `json:"address"`
	City      string   `json:"city"`
	Region    string   `json:"region,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// GeoPoint is an optional coordinate attached to a tracking update
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// VehicleType enumerates the vehicles a driver can offer
type VehicleType string

const (
	VehiclePickup       VehicleType = "pickup"
	VehicleVan          VehicleType = "van"
	VehicleLightTruck   VehicleType = "light_truck"
	VehicleMediumTruck  VehicleType = "medium_truck"
	VehicleHeavyTruck   VehicleType = "heavy_truck"
	VehicleTrailer      VehicleType = "trailer"
	VehicleRefrigerated VehicleType = "refrigerated"
	VehicleFlatbed      VehicleType = "flatbed"
	VehicleTanker       VehicleType = "tanker"
)

// IsValid checks if the vehicle type is known
func (v VehicleType) IsValid() bool {
	switch v {
	case VehiclePickup, VehicleVan, VehicleLightTruck, VehicleMediumTruck, VehicleHeavyTruck,
		VehicleTrailer, VehicleRefrigerated, VehicleFlatbed, VehicleTanker:
		return true
	}
	return false
}

// VehicleDetails describes the vehicle offered in a bid
type VehicleDetails struct {
	Type        VehicleType     `json:"type"`
	PlateNumber string          `json:"plate_number,omitempty"`
	CapacityKg  decimal.Decimal `json:"capacity_kg"`
}

// AdditionalService enumerates optional services quoted in a bid
type AdditionalService string

const (
	ServiceLoading   AdditionalService = "loading"
	ServiceUnloading AdditionalService = "unloading"
	ServicePacking   AdditionalService = "packing"
	ServiceInsurance AdditionalService = "insurance"
	ServiceTracking  AdditionalService = "tracking"
	ServiceExpress   AdditionalService = "express"
)

// IsValid checks if the service is known
func (s AdditionalService) IsValid() bool {
	switch s {
	case ServiceLoading, ServiceUnloading, ServicePacking, ServiceInsurance, ServiceTracking, ServiceExpress:
		return true
	}
	return false
}

// PricingBreakdown itemizes a bid amount. Items are informational; the bid
// Amount is the binding figure.
type PricingBreakdown struct {
	BaseRate    decimal.Decimal `json:"base_rate"`
	FuelCost    decimal.Decimal `json:"fuel_cost"`
	TollCost    decimal.Decimal `json:"toll_cost"`
	LoadingCost decimal.Decimal `json:"loading_cost"`
	OtherCost   decimal.Decimal `json:"other_cost"`
}

// Total sums every line of the breakdown.
func (p PricingBreakdown) Total() decimal.Decimal {
	return p.BaseRate.Add(p.FuelCost).Add(p.TollCost).Add(p.LoadingCost).Add(p.OtherCost)
}

// PaymentTerms is the canonical payment timing of a bid
type PaymentTerms string

const (
	PaymentUpfront    PaymentTerms = "upfront"
	PaymentOnPickup   PaymentTerms = "on_pickup"
	PaymentOnDelivery PaymentTerms = "on_delivery"
	PaymentNet7       PaymentTerms = "net_7"
	PaymentNet30      PaymentTerms = "net_30"
)

// ConservativePaymentTerms is assigned when the submitted vocabulary is unknown.
const ConservativePaymentTerms = PaymentOnDelivery

// IsValid checks if the payment terms are canonical
func (p PaymentTerms) IsValid() bool {
	switch p {
	case PaymentUpfront, PaymentOnPickup, PaymentOnDelivery, PaymentNet7, PaymentNet30:
		return true
	}
	return false
}

// paymentTermsVocabulary maps external payment-timing words onto canonical values.
var paymentTermsVocabulary = map[string]PaymentTerms{
	"advance":          PaymentUpfront,
	"prepaid":          PaymentUpfront,
	"upfront":          PaymentUpfront,
	"before_pickup":    PaymentUpfront,
	"on_pickup":        PaymentOnPickup,
	"pickup":           PaymentOnPickup,
	"at_pickup":        PaymentOnPickup,
	"cod":              PaymentOnDelivery,
	"cash_on_delivery": PaymentOnDelivery,
	"on_delivery":      PaymentOnDelivery,
	"delivery":         PaymentOnDelivery,
	"weekly":           PaymentNet7,
	"net_7":            PaymentNet7,
	"7_days":           PaymentNet7,
	"monthly":          PaymentNet30,
	"net_30":           PaymentNet30,
	"30_days":          PaymentNet30,
}

// NormalizePaymentTerms maps raw onto a canonical value. The second result is
// false when raw was not recognised and the conservative default was applied.
func NormalizePaymentTerms(raw string) (PaymentTerms, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if terms, ok := paymentTermsVocabulary[key]; ok {
		return terms, true
	}
	return ConservativePaymentTerms, false
}
