package handler

import (
	"net/http"
	"testing"

	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHandler_CreateAndGet(t *testing.T) {
	h := newAPIHarness(t)
	owner := h.user(t, shared.RoleCargoOwner)

	load := h.postLoad(t, owner)
	assert.Equal(t, owner.id, load.OwnerID)
	assert.Equal(t, "posted", load.Status)
	assert.Equal(t, "Nairobi", load.Pickup.City)
	assert.Equal(t, "10000", load.Budget.String())

	rec := h.do(t, http.MethodGet, "/api/v1/loads/"+load.ID.String(), h.user(t, shared.RoleDriver), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[marketplaceapp.LoadResponse](t, rec)
	assert.True(t, got.Success)
	assert.Equal(t, load.ID, got.Data.ID)
}

func TestLoadHandler_Create_Rejections(t *testing.T) {
	h := newAPIHarness(t)
	owner := h.user(t, shared.RoleCargoOwner)

	tests := []struct {
		name       string
		user       testUser
		body       any
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{
			name:       "driver cannot post",
			user:       h.user(t, shared.RoleDriver),
			body:       loadPayload(),
			wantStatus: http.StatusForbidden,
			wantCode:   dto.ErrCodeForbidden,
		},
		{
			name:       "missing token",
			user:       testUser{},
			body:       loadPayload(),
			wantStatus: http.StatusUnauthorized,
			wantCode:   dto.ErrCodeUnauthorized,
		},
		{
			name:       "binding failure names json field",
			user:       owner,
			body:       gin.H{"pickup_date": "2026-03-04T09:00:00Z"},
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
			wantField:  "title",
		},
		{
			name: "domain validation keeps field details",
			user: owner,
			body: func() gin.H {
				p := loadPayload()
				p["weight_kg"] = "0"
				return p
			}(),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
			wantField:  "weight_kg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/v1/loads", tt.user, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			info := errorInfo(t, rec)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.NotEmpty(t, info.RequestID)
			if tt.wantField != "" {
				fields := make([]string, len(info.Details))
				for i, d := range info.Details {
					fields[i] = d.Field
				}
				assert.Contains(t, fields, tt.wantField)
			}
		})
	}
}

func TestLoadHandler_GetByID_Errors(t *testing.T) {
	h := newAPIHarness(t)
	driver := h.user(t, shared.RoleDriver)

	rec := h.do(t, http.MethodGet, "/api/v1/loads/not-a-uuid", driver, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrCodeValidation, errorInfo(t, rec).Code)

	rec = h.do(t, http.MethodGet, "/api/v1/loads/"+uuid.NewString(), driver, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, dto.ErrCodeNotFound, errorInfo(t, rec).Code)
}

func TestLoadHandler_List(t *testing.T) {
	h := newAPIHarness(t)
	alice := h.user(t, shared.RoleCargoOwner)
	bob := h.user(t, shared.RoleCargoOwner)
	for range 3 {
		h.postLoad(t, alice)
	}
	h.postLoad(t, bob)
	driver := h.user(t, shared.RoleDriver)

	t.Run("pagination meta", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/v1/loads?page=1&page_size=2", driver, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[[]marketplaceapp.LoadResponse](t, rec)
		assert.Len(t, resp.Data, 2)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(4), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.TotalPages)
	})

	t.Run("owner filter", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/v1/loads?owner_id="+bob.id.String(), driver, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[[]marketplaceapp.LoadResponse](t, rec)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, bob.id, resp.Data[0].OwnerID)
		assert.Equal(t, 20, resp.Meta.PageSize)
	})

	t.Run("unknown status", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/v1/loads?status=lost", driver, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorInfo(t, rec).Code)
	})

	t.Run("bad order direction", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/v1/loads?order_dir=sideways", driver, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoadHandler_Cancel(t *testing.T) {
	h := newAPIHarness(t)
	owner := h.user(t, shared.RoleCargoOwner)
	driver := h.registered(t, shared.RoleDriver, "Juma")
	load := h.postLoad(t, owner)
	bid := h.submitBid(t, driver, load.ID, "9500")

	t.Run("stranger is forbidden", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/loads/"+load.ID.String()+"/cancel", h.user(t, shared.RoleCargoOwner), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner cancels without a body", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/loads/"+load.ID.String()+"/cancel", owner, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "cancelled", decode[marketplaceapp.LoadResponse](t, rec).Data.Status)

		rec = h.do(t, http.MethodGet, "/api/v1/bids/"+bid.ID.String(), driver, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[marketplaceapp.BidResponse](t, rec).Data
		assert.Equal(t, "rejected", got.Status)
		assert.Equal(t, "load was cancelled", got.RejectionReason)
	})

	t.Run("second cancel conflicts", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/loads/"+load.ID.String()+"/cancel", owner, gin.H{"reason": "again"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
