package handler

import (
	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	"github.com/gin-gonic/gin"
)

// LoadHandler handles load posting HTTP requests
type LoadHandler struct {
	BaseHandler
	loadService *marketplaceapp.LoadService
}

// NewLoadHandler creates a new LoadHandler
func NewLoadHandler(loadService *marketplaceapp.LoadService) *LoadHandler {
	return &LoadHandler{loadService: loadService}
}

// Create godoc
// @ID           createLoad
// @Summary      Post a load
// @Description  Post a new load for drivers to bid on. Cargo owners only.
// @Tags         loads
// @Accept       json
// @Produce      json
// @Param        request body marketplace.CreateLoadRequest true "Load details"
// @Success      201 {object} APIResponse[marketplace.LoadResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loads [post]
func (h *LoadHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req marketplaceapp.CreateLoadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	load, err := h.loadService.CreateLoad(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, load)
}

// GetByID godoc
// @ID           getLoad
// @Summary      Get load by ID
// @Tags         loads
// @Produce      json
// @Param        id path string true "Load ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.LoadResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loads/{id} [get]
func (h *LoadHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	load, err := h.loadService.GetLoad(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, load)
}

// List godoc
// @ID           listLoads
// @Summary      List loads
// @Description  List loads with optional status, owner and open-for-bidding filters
// @Tags         loads
// @Produce      json
// @Param        status query string false "Load status"
// @Param        owner_id query string false "Owner ID" format(uuid)
// @Param        open_only query bool false "Only loads accepting bids"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]marketplace.LoadResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loads [get]
func (h *LoadHandler) List(c *gin.Context) {
	var filter marketplaceapp.LoadListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	loads, total, err := h.loadService.ListLoads(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageMeta(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, loads, total, page, pageSize)
}

// Cancel godoc
// @ID           cancelLoad
// @Summary      Cancel a load
// @Description  Withdraw an unassigned load. Every live bid on it is rejected.
// @Tags         loads
// @Accept       json
// @Produce      json
// @Param        id path string true "Load ID" format(uuid)
// @Param        request body marketplace.CancelLoadRequest false "Cancellation reason"
// @Success      200 {object} APIResponse[marketplace.LoadResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loads/{id}/cancel [post]
func (h *LoadHandler) Cancel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req marketplaceapp.CancelLoadRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	load, err := h.loadService.CancelLoad(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, load)
}

// Close godoc
// @ID           closeLoad
// @Summary      Close a delivered load
// @Tags         loads
// @Produce      json
// @Param        id path string true "Load ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.LoadResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loads/{id}/close [post]
func (h *LoadHandler) Close(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	load, err := h.loadService.CloseLoad(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, load)
}
