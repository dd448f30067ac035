package handler

import (
	"fmt"
	"net/http"

	model "autohub-auctions/internal/models"
	"autohub-auctions/services/auction/helpers"
	"autohub-auctions/utils"

	"github.com/gin-gonic/gin"
)

type AuctionServiceInterface interface {
	CreateAuction(params model.CreateAuctionParams) (model.Auction, error)
	CancelAuction(auctionID, actingSellerID string) (model.Auction, error)
}

type BiddingServiceInterface interface {
	PlaceBid(auctionID, bidderID string, amount float64) (model.Bid, error)
}

type QueryServiceInterface interface {
	GetAuctionDetail(auctionID, viewerID string) (model.AuctionDetailView, error)
	ListActiveAuctions(excludeSellerID string) ([]model.AuctionSummaryView, error)
	ListSellerAuctions(sellerID string) ([]model.AuctionSummaryView, error)
	ListBidderBids(bidderID string) ([]model.BidStatusView, error)
	GetBidHistory(auctionID string) ([]model.AnonymizedBidView, error)
}

type AuctionHandler struct {
	auctions AuctionServiceInterface
	bidding  BiddingServiceInterface
	queries  QueryServiceInterface
}

func NewAuctionHandler(auctions AuctionServiceInterface, bidding BiddingServiceInterface, queries QueryServiceInterface) *AuctionHandler {
	return &AuctionHandler{
		auctions: auctions,
		bidding:  bidding,
		queries:  queries,
	}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	params := model.CreateAuctionParams{
		SellerID:      req.SellerID,
		VehicleRef:    req.VehicleRef,
		StartingPrice: req.StartingPrice,
		ReservePrice:  req.ReservePrice,
		BuyNowPrice:   req.BuyNowPrice,
		DurationDays:  req.DurationDays,
	}
	if req.ScheduledStart != nil {
		params.ScheduledStart = req.ScheduledStart.UTC()
	}

	auction, err := h.auctions.CreateAuction(params)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CreateAuctionHandler: failed to create auction", map[string]any{
			"seller_id":   req.SellerID,
			"vehicle_ref": req.VehicleRef,
			"error":       err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToAuctionResponse(auction), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  auction.SellerID,
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.bidding.PlaceBid(auctionID, req.BidderID, req.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PlaceBidHandler: failed to place bid", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToBidResponse(bid), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount,
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	viewerID := c.Query("viewer_id")

	detail, err := h.queries.GetAuctionDetail(auctionID, viewerID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, detail, "auction retrieved successfully")
	helpers.LogSuccess("GetAuctionHandler", "auction retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"status":     detail.Status,
	})
}

// ListActiveAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListActiveAuctionsHandler(c *gin.Context) {
	excludeSellerID := c.Query("exclude_seller_id")

	views, err := h.queries.ListActiveAuctions(excludeSellerID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListActiveAuctionsHandler: error listing auctions", map[string]any{"error": err.Error()})
		return
	}

	if views == nil {
		views = []model.AuctionSummaryView{}
	}

	utils.JSONResponse(c, http.StatusOK, views, "auctions retrieved successfully")
	helpers.LogSuccess("ListActiveAuctionsHandler", "auctions retrieved successfully", map[string]any{
		"count": len(views),
	})
}

// GetBidHistoryHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidHistoryHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	history, err := h.queries.GetBidHistory(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidHistoryHandler: error retrieving history", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, history, "bid history retrieved successfully")
	helpers.LogSuccess("GetBidHistoryHandler", "bid history retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(history),
	})
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *AuctionHandler) CancelAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.CancelAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CancelAuctionHandler", err)
		return
	}

	auction, err := h.auctions.CancelAuction(auctionID, req.SellerID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CancelAuctionHandler: failed to cancel auction", map[string]any{
			"auction_id": auctionID,
			"seller_id":  req.SellerID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(auction), "auction cancelled successfully")
	helpers.LogSuccess("CancelAuctionHandler", "auction cancelled successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  req.SellerID,
	})
}

// ListMyBidsHandler handles GET /users/:user_id/bids
func (h *AuctionHandler) ListMyBidsHandler(c *gin.Context) {
	userID := c.Param("user_id")

	views, err := h.queries.ListBidderBids(userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListMyBidsHandler: error retrieving bids", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	if views == nil {
		views = []model.BidStatusView{}
	}

	utils.JSONResponse(c, http.StatusOK, views, "bids retrieved successfully")
	helpers.LogSuccess("ListMyBidsHandler", "bids retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(views),
	})
}

// ListMyAuctionsHandler handles GET /users/:user_id/auctions
func (h *AuctionHandler) ListMyAuctionsHandler(c *gin.Context) {
	userID := c.Param("user_id")

	views, err := h.queries.ListSellerAuctions(userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListMyAuctionsHandler: error retrieving auctions", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	if views == nil {
		views = []model.AuctionSummaryView{}
	}

	utils.JSONResponse(c, http.StatusOK, views, "auctions retrieved successfully")
	helpers.LogSuccess("ListMyAuctionsHandler", "auctions retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(views),
	})
}
