package handler

import (
	profileapp "github.com/freightmarket/backend/internal/application/profile"
	"github.com/gin-gonic/gin"
)

// ProfileHandler handles marketplace profile HTTP requests
type ProfileHandler struct {
	BaseHandler
	profileService *profileapp.ProfileService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService *profileapp.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpsertMine godoc
// @ID           upsertMyProfile
// @Summary      Create or update the caller's profile
// @Description  The role is taken from the access token
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        request body profile.UpsertProfileRequest true "Profile fields"
// @Success      200 {object} APIResponse[profile.ProfileResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me/profile [put]
func (h *ProfileHandler) UpsertMine(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req profileapp.UpsertProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.profileService.UpsertMyProfile(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

// GetByID godoc
// @ID           getProfile
// @Summary      Get a profile
// @Tags         profiles
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[profile.ProfileResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /profiles/{id} [get]
func (h *ProfileHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}
