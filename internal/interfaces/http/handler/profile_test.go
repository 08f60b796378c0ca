package handler

import (
	"net/http"
	"testing"

	profileapp "github.com/freightmarket/backend/internal/application/profile"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileHandler_UpsertMine(t *testing.T) {
	h := newAPIHarness(t)
	driver := h.user(t, shared.RoleDriver)

	rec := h.do(t, http.MethodPut, "/api/v1/me/profile", driver, gin.H{"name": "Juma", "email": "juma@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[profileapp.ProfileResponse](t, rec).Data
	assert.Equal(t, driver.id, created.ID)
	assert.Equal(t, "driver", created.Role)
	assert.Equal(t, "Juma", created.Name)

	rec = h.do(t, http.MethodPut, "/api/v1/me/profile", driver, gin.H{"name": "Juma Otieno", "phone": "+254711000000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[profileapp.ProfileResponse](t, rec).Data
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Juma Otieno", updated.Name)
	assert.Equal(t, "+254711000000", updated.Phone)

	rec = h.do(t, http.MethodGet, "/api/v1/profiles/"+driver.id.String(), h.user(t, shared.RoleCargoOwner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Juma Otieno", decode[profileapp.ProfileResponse](t, rec).Data.Name)
}

func TestProfileHandler_Rejections(t *testing.T) {
	h := newAPIHarness(t)
	owner := h.user(t, shared.RoleCargoOwner)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"missing name", http.MethodPut, "/api/v1/me/profile", gin.H{"phone": "+254700000000"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad email", http.MethodPut, "/api/v1/me/profile", gin.H{"name": "A", "email": "nope"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"unknown profile", http.MethodGet, "/api/v1/profiles/" + uuid.NewString(), nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"malformed id", http.MethodGet, "/api/v1/profiles/42", nil, http.StatusBadRequest, dto.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, tt.method, tt.path, owner, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, errorInfo(t, rec).Code)
		})
	}
}
