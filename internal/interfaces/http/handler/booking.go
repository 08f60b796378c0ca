package handler

import (
	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	"github.com/gin-gonic/gin"
)

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	BaseHandler
	bookingService *marketplaceapp.BookingService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *marketplaceapp.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// GetByID godoc
// @ID           getBooking
// @Summary      Get booking by ID
// @Description  Visible to the assigned driver and the cargo owner
// @Tags         bookings
// @Produce      json
// @Param        id path string true "Booking ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.BookingResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bookings/{id} [get]
func (h *BookingHandler) GetByID(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, booking)
}

// ListMine godoc
// @ID           listMyBookings
// @Summary      List the caller's bookings
// @Tags         bookings
// @Produce      json
// @Param        status query string false "Booking status"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]marketplace.BookingResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me/bookings [get]
func (h *BookingHandler) ListMine(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var filter marketplaceapp.BookingListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	bookings, total, err := h.bookingService.ListMyBookings(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageMeta(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, bookings, total, page, pageSize)
}

// UpdateStatus godoc
// @ID           updateBookingStatus
// @Summary      Advance a booking
// @Description  Move a booking along its lifecycle. Delivery and completion cascade to the load.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        id path string true "Booking ID" format(uuid)
// @Param        request body marketplace.UpdateBookingStatusRequest true "New status"
// @Success      200 {object} APIResponse[marketplace.BookingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bookings/{id}/status [patch]
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req marketplaceapp.UpdateBookingStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	booking, err := h.bookingService.UpdateBookingStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, booking)
}

// SubmitRating godoc
// @ID           rateBooking
// @Summary      Rate the other party
// @Description  Each party rates the other once after completion
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        id path string true "Booking ID" format(uuid)
// @Param        request body marketplace.SubmitRatingRequest true "Rating"
// @Success      201 {object} APIResponse[marketplace.RatingResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bookings/{id}/ratings [post]
func (h *BookingHandler) SubmitRating(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req marketplaceapp.SubmitRatingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.bookingService.SubmitRating(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// RequestProofOfDelivery godoc
// @ID           requestProofOfDeliveryUpload
// @Summary      Get a proof-of-delivery upload URL
// @Description  Returns a presigned PUT URL for the assigned driver once the goods are delivered
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        id path string true "Booking ID" format(uuid)
// @Param        request body marketplace.ProofOfDeliveryRequest true "Document details"
// @Success      200 {object} APIResponse[marketplace.ProofOfDeliveryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bookings/{id}/proof-of-delivery [post]
func (h *BookingHandler) RequestProofOfDelivery(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req marketplaceapp.ProofOfDeliveryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	upload, err := h.bookingService.RequestProofOfDeliveryUpload(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, upload)
}

// GetProofOfDelivery godoc
// @ID           getProofOfDelivery
// @Summary      Get a proof-of-delivery download URL
// @Tags         bookings
// @Produce      json
// @Param        id path string true "Booking ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.ProofOfDeliveryLink]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bookings/{id}/proof-of-delivery [get]
func (h *BookingHandler) GetProofOfDelivery(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	link, err := h.bookingService.GetProofOfDeliveryURL(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}
