package marketplace

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidatedBid is a bid payload that passed every shape and business rule
type ValidatedBid struct {
	Terms marketplace.BidTerms
	// PaymentTermsDefaulted is true when the submitted payment vocabulary was
	// unknown and the conservative value was applied.
	PaymentTermsDefaulted bool
}

// BidValidator checks a raw bid payload. It holds no state beyond its
// configuration and never touches the store.
type BidValidator struct {
	validate        *validator.Validate
	defaultCurrency string
}

// NewBidValidator creates a validator whose field paths use JSON names
func NewBidValidator(defaultCurrency string) *BidValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if defaultCurrency == "" {
		defaultCurrency = marketplace.DefaultCurrency
	}
	return &BidValidator{validate: v, defaultCurrency: defaultCurrency}
}

// Validate returns the normalized terms, or a VALIDATION_ERROR listing every
// violated field. now anchors the "pickup not in the past" rule to the
// current calendar day (UTC).
func (v *BidValidator) Validate(req SubmitBidRequest, now time.Time) (*ValidatedBid, error) {
	var verrs shared.ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			verrs.Add(fieldPath(fe), fieldMessage(fe))
		}
	}

	if req.Amount.LessThan(decimal.NewFromInt(1)) {
		verrs.Add("amount", "Bid amount must be at least 1")
	}
	if !req.ProposedPickupDate.IsZero() {
		today := now.UTC().Truncate(24 * time.Hour)
		if req.ProposedPickupDate.UTC().Before(today) {
			verrs.Add("proposed_pickup_date", "Pickup date cannot be in the past")
		}
		if !req.ProposedDeliveryDate.IsZero() && !req.ProposedDeliveryDate.After(req.ProposedPickupDate) {
			verrs.Add("proposed_delivery_date", "Delivery date must be after pickup date")
		}
	}
	if req.Vehicle.CapacityKg.IsNegative() {
		verrs.Add("vehicle.capacity_kg", "Capacity cannot be negative")
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = v.defaultCurrency
	}
	terms, known := marketplace.NormalizePaymentTerms(req.PaymentTerms)

	services := make([]marketplace.AdditionalService, 0, len(req.AdditionalServices))
	seen := make(map[marketplace.AdditionalService]bool, len(req.AdditionalServices))
	for _, s := range req.AdditionalServices {
		svc := marketplace.AdditionalService(s)
		if seen[svc] {
			continue
		}
		seen[svc] = true
		services = append(services, svc)
	}

	var pricing marketplace.PricingBreakdown
	if req.Pricing != nil {
		pricing = marketplace.PricingBreakdown{
			BaseRate:    req.Pricing.BaseRate,
			FuelCost:    req.Pricing.FuelCost,
			TollCost:    req.Pricing.TollCost,
			LoadingCost: req.Pricing.LoadingCost,
			OtherCost:   req.Pricing.OtherCost,
		}
	}

	return &ValidatedBid{
		Terms: marketplace.BidTerms{
			Amount:               req.Amount,
			Currency:             currency,
			ProposedPickupDate:   req.ProposedPickupDate,
			ProposedDeliveryDate: req.ProposedDeliveryDate,
			Vehicle: marketplace.VehicleDetails{
				Type:        marketplace.VehicleType(req.Vehicle.Type),
				PlateNumber: strings.ToUpper(strings.TrimSpace(req.Vehicle.PlateNumber)),
				CapacityKg:  req.Vehicle.CapacityKg,
			},
			AdditionalServices: services,
			Pricing:            pricing,
			PaymentTerms:       terms,
			Message:            strings.TrimSpace(req.Message),
		},
		PaymentTermsDefaulted: !known,
	}, nil
}

// fieldPath drops the root struct name: SubmitBidRequest.vehicle.type -> vehicle.type
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s cannot have more than %s entries", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "uppercase", "alpha":
		return fmt.Sprintf("%s must be a 3-letter ISO code", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
