package handler

import (
	"context"

	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BidHandler handles bidding and allocation HTTP requests
type BidHandler struct {
	BaseHandler
	bidService        *marketplaceapp.BidService
	allocationService *marketplaceapp.AllocationService
}

// NewBidHandler creates a new BidHandler
func NewBidHandler(bidService *marketplaceapp.BidService, allocationService *marketplaceapp.AllocationService) *BidHandler {
	return &BidHandler{
		bidService:        bidService,
		allocationService: allocationService,
	}
}

// Submit godoc
// @ID           submitBid
// @Summary      Bid on a load
// @Description  Submit a driver bid. One live bid per driver and load.
// @Tags         bids
// @Accept       json
// @Produce      json
// @Param        id path string true "Load ID" format(uuid)
// @Param        request body marketplace.SubmitBidRequest true "Bid details"
// @Success      201 {object} APIResponse[marketplace.BidResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loads/{id}/bids [post]
func (h *BidHandler) Submit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	loadID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req marketplaceapp.SubmitBidRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bid, err := h.bidService.SubmitBid(c.Request.Context(), actor, loadID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, bid)
}

// ListForLoad godoc
// @ID           listLoadBids
// @Summary      List bids on a load
// @Description  List the bids on one of the caller's loads, optionally filtered by status
// @Tags         bids
// @Produce      json
// @Param        id path string true "Load ID" format(uuid)
// @Param        status query string false "Bid status"
// @Success      200 {object} APIResponse[[]marketplace.BidResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loads/{id}/bids [get]
func (h *BidHandler) ListForLoad(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	loadID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	bids, err := h.bidService.GetBidsForLoad(c.Request.Context(), actor, loadID, c.Query("status"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bids)
}

// Analysis godoc
// @ID           getBidAnalysis
// @Summary      Competitive analysis of a load's bids
// @Tags         bids
// @Produce      json
// @Param        id path string true "Load ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.CompetitiveAnalysis]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loads/{id}/bids/analysis [get]
func (h *BidHandler) Analysis(c *gin.Context) {
	loadID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	analysis, err := h.bidService.GetCompetitiveAnalysis(c.Request.Context(), loadID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, analysis)
}

// GetByID godoc
// @ID           getBid
// @Summary      Get bid by ID
// @Description  Visible to the bidding driver and the load owner. An owner read marks the bid viewed.
// @Tags         bids
// @Produce      json
// @Param        id path string true "Bid ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.BidResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bids/{id} [get]
func (h *BidHandler) GetByID(c *gin.Context) {
	h.withBid(c, h.bidService.GetBid)
}

// MarkViewed godoc
// @ID           markBidViewed
// @Summary      Mark a bid as viewed
// @Tags         bids
// @Produce      json
// @Param        id path string true "Bid ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.BidResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bids/{id}/view [post]
func (h *BidHandler) MarkViewed(c *gin.Context) {
	h.withBid(c, h.bidService.MarkAsViewed)
}

// Shortlist godoc
// @ID           shortlistBid
// @Summary      Shortlist a bid
// @Tags         bids
// @Produce      json
// @Param        id path string true "Bid ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.BidResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      410 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bids/{id}/shortlist [post]
func (h *BidHandler) Shortlist(c *gin.Context) {
	h.withBid(c, h.bidService.ShortlistBid)
}

// Review godoc
// @ID           reviewBid
// @Summary      Move a bid under review
// @Tags         bids
// @Produce      json
// @Param        id path string true "Bid ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.BidResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      410 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bids/{id}/review [post]
func (h *BidHandler) Review(c *gin.Context) {
	h.withBid(c, h.bidService.ReviewBid)
}

// Accept godoc
// @ID           acceptBid
// @Summary      Accept a bid
// @Description  Assign the load to the bidding driver and create the booking. Competing bids are rejected atomically.
// @Tags         bids
// @Produce      json
// @Param        id path string true "Bid ID" format(uuid)
// @Success      200 {object} APIResponse[marketplace.AcceptBidResult]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      410 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bids/{id}/accept [post]
func (h *BidHandler) Accept(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	bidID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.allocationService.AcceptBid(c.Request.Context(), actor, bidID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reject godoc
// @ID           rejectBid
// @Summary      Reject a bid
// @Tags         bids
// @Accept       json
// @Produce      json
// @Param        id path string true "Bid ID" format(uuid)
// @Param        request body marketplace.RejectBidRequest true "Rejection reason"
// @Success      200 {object} APIResponse[marketplace.BidResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bids/{id}/reject [post]
func (h *BidHandler) Reject(c *gin.Context) {
	var req marketplaceapp.RejectBidRequest
	h.withBidBody(c, &req, false, func(ctx context.Context, actor shared.Actor, id uuid.UUID) (*marketplaceapp.BidResponse, error) {
		return h.bidService.RejectBid(ctx, actor, id, req)
	})
}

// Withdraw godoc
// @ID           withdrawBid
// @Summary      Withdraw a bid
// @Tags         bids
// @Accept       json
// @Produce      json
// @Param        id path string true "Bid ID" format(uuid)
// @Param        request body marketplace.WithdrawBidRequest false "Withdrawal reason"
// @Success      200 {object} APIResponse[marketplace.BidResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bids/{id}/withdraw [post]
func (h *BidHandler) Withdraw(c *gin.Context) {
	var req marketplaceapp.WithdrawBidRequest
	h.withBidBody(c, &req, true, func(ctx context.Context, actor shared.Actor, id uuid.UUID) (*marketplaceapp.BidResponse, error) {
		return h.bidService.WithdrawBid(ctx, actor, id, req)
	})
}

// CounterOffer godoc
// @ID           counterOfferBid
// @Summary      Propose a counter-offer
// @Tags         bids
// @Accept       json
// @Produce      json
// @Param        id path string true "Bid ID" format(uuid)
// @Param        request body marketplace.CounterOfferRequest true "Counter-offer terms"
// @Success      200 {object} APIResponse[marketplace.BidResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      410 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bids/{id}/counter-offer [post]
func (h *BidHandler) CounterOffer(c *gin.Context) {
	var req marketplaceapp.CounterOfferRequest
	h.withBidBody(c, &req, false, func(ctx context.Context, actor shared.Actor, id uuid.UUID) (*marketplaceapp.BidResponse, error) {
		return h.bidService.ProposeCounterOffer(ctx, actor, id, req)
	})
}

// RespondCounterOffer godoc
// @ID           respondCounterOffer
// @Summary      Answer a counter-offer
// @Description  Accepting allocates the load at the countered amount; declining returns the bid to pending.
// @Tags         bids
// @Accept       json
// @Produce      json
// @Param        id path string true "Bid ID" format(uuid)
// @Param        request body marketplace.RespondCounterOfferRequest true "Answer"
// @Success      200 {object} APIResponse[marketplace.CounterOfferResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      410 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bids/{id}/counter-offer/respond [post]
func (h *BidHandler) RespondCounterOffer(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	bidID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req marketplaceapp.RespondCounterOfferRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.allocationService.RespondToCounterOffer(c.Request.Context(), actor, bidID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListMine godoc
// @ID           listMyBids
// @Summary      List the caller's bids
// @Tags         bids
// @Produce      json
// @Param        status query string false "Bid status"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]marketplace.BidResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me/bids [get]
func (h *BidHandler) ListMine(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var filter marketplaceapp.BidListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	bids, total, err := h.bidService.ListMyBids(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageMeta(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, bids, total, page, pageSize)
}

type bidOperation func(ctx context.Context, actor shared.Actor, bidID uuid.UUID) (*marketplaceapp.BidResponse, error)

// withBid runs a body-less bid operation for the caller
func (h *BidHandler) withBid(c *gin.Context, op bidOperation) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	bidID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	bid, err := op(c.Request.Context(), actor, bidID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bid)
}

// withBidBody runs a bid operation after binding req from the body
func (h *BidHandler) withBidBody(
	c *gin.Context,
	req any,
	optional bool,
	op bidOperation,
) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	bidID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	bind := h.bindJSON
	if optional {
		bind = h.bindOptionalJSON
	}
	if !bind(c, req) {
		return
	}

	bid, err := op(c.Request.Context(), actor, bidID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bid)
}
