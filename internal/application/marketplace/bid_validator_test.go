package marketplace

import (
	"testing"
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.CodeValidation, de.Code)
	fields := make([]string, len(de.Details))
	for i, d := range de.Details {
		fields[i] = d.Field
	}
	return fields
}

func TestBidValidator_Valid(t *testing.T) {
	v := NewBidValidator("KES")

	validated, err := v.Validate(validBidRequest(9000), testNow)

	require.NoError(t, err)
	assert.Equal(t, "KES", validated.Terms.Currency)
	assert.Equal(t, marketplace.PaymentOnDelivery, validated.Terms.PaymentTerms)
	assert.False(t, validated.PaymentTermsDefaulted)
	assert.Equal(t, "KDA 123X", validated.Terms.Vehicle.PlateNumber)
	assert.Equal(t, marketplace.VehicleMediumTruck, validated.Terms.Vehicle.Type)
}

func TestBidValidator_FieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *SubmitBidRequest)
		field  string
	}{
		{"amount below one", func(r *SubmitBidRequest) { r.Amount = decimal.NewFromFloat(0.5) }, "amount"},
		{"lowercase currency", func(r *SubmitBidRequest) { r.Currency = "kes" }, "currency"},
		{"short currency", func(r *SubmitBidRequest) { r.Currency = "KS" }, "currency"},
		{"missing pickup", func(r *SubmitBidRequest) { r.ProposedPickupDate = time.Time{} }, "proposed_pickup_date"},
		{"pickup yesterday", func(r *SubmitBidRequest) {
			r.ProposedPickupDate = testNow.Add(-24 * time.Hour)
		}, "proposed_pickup_date"},
		{"delivery equals pickup", func(r *SubmitBidRequest) { r.ProposedDeliveryDate = r.ProposedPickupDate }, "proposed_delivery_date"},
		{"unknown vehicle", func(r *SubmitBidRequest) { r.Vehicle.Type = "bicycle" }, "vehicle.type"},
		{"missing vehicle", func(r *SubmitBidRequest) { r.Vehicle.Type = "" }, "vehicle.type"},
		{"plate too long", func(r *SubmitBidRequest) { r.Vehicle.PlateNumber = "KDA 123X KDA 123X KDA" }, "vehicle.plate_number"},
		{"unknown service", func(r *SubmitBidRequest) { r.AdditionalServices = []string{"catering"} }, "additional_services[0]"},
		{"too many services", func(r *SubmitBidRequest) {
			r.AdditionalServices = make([]string, 11)
			for i := range r.AdditionalServices {
				r.AdditionalServices[i] = "loading"
			}
		}, "additional_services"},
		{"message too long", func(r *SubmitBidRequest) {
			b := make([]byte, 1001)
			for i := range b {
				b[i] = 'a'
			}
			r.Message = string(b)
		}, "message"},
	}

	v := NewBidValidator("KES")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validBidRequest(9000)
			tt.mutate(&req)

			_, err := v.Validate(req, testNow)

			assert.Contains(t, fieldsOf(t, err), tt.field)
		})
	}
}

func TestBidValidator_PickupEarlierToday(t *testing.T) {
	v := NewBidValidator("KES")
	req := validBidRequest(9000)
	req.ProposedPickupDate = time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)
	req.ProposedDeliveryDate = req.ProposedPickupDate.Add(24 * time.Hour)

	_, err := v.Validate(req, testNow)

	assert.NoError(t, err)
}

func TestBidValidator_CollectsEveryViolation(t *testing.T) {
	v := NewBidValidator("KES")
	req := validBidRequest(0)
	req.Vehicle.Type = "bicycle"
	req.ProposedDeliveryDate = req.ProposedPickupDate

	fields := fieldsOf(t, func() error { _, err := v.Validate(req, testNow); return err }())

	assert.ElementsMatch(t, []string{"vehicle.type", "amount", "proposed_delivery_date"}, fields)
}

func TestBidValidator_PaymentTermsMapping(t *testing.T) {
	tests := []struct {
		raw       string
		want      marketplace.PaymentTerms
		defaulted bool
	}{
		{"advance", marketplace.PaymentUpfront, false},
		{"at_pickup", marketplace.PaymentOnPickup, false},
		{"cash_on_delivery", marketplace.PaymentOnDelivery, false},
		{"weekly", marketplace.PaymentNet7, false},
		{"30_days", marketplace.PaymentNet30, false},
		{"", marketplace.PaymentOnDelivery, true},
		{"barter", marketplace.PaymentOnDelivery, true},
	}

	v := NewBidValidator("KES")
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := validBidRequest(9000)
			req.PaymentTerms = tt.raw

			validated, err := v.Validate(req, testNow)

			require.NoError(t, err)
			assert.Equal(t, tt.want, validated.Terms.PaymentTerms)
			assert.Equal(t, tt.defaulted, validated.PaymentTermsDefaulted)
		})
	}
}

func TestBidValidator_DeduplicatesServices(t *testing.T) {
	v := NewBidValidator("")
	req := validBidRequest(9000)
	req.AdditionalServices = []string{"loading", "tracking", "loading"}

	validated, err := v.Validate(req, testNow)

	require.NoError(t, err)
	assert.Equal(t, []marketplace.AdditionalService{marketplace.ServiceLoading, marketplace.ServiceTracking},
		validated.Terms.AdditionalServices)
	assert.Equal(t, marketplace.DefaultCurrency, validated.Terms.Currency)
}
