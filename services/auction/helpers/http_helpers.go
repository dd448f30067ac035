package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"autohub-auctions/internal/auctionerrors"
	model "autohub-auctions/internal/models"
	"autohub-auctions/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrDuplicateID):
		return http.StatusConflict, "auction already exists"
	case errors.Is(err, auctionerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrSelfBid):
		return http.StatusForbidden, "sellers cannot bid on their own auctions"
	case errors.Is(err, auctionerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not open for bidding"
	case errors.Is(err, auctionerrors.ErrInvalidState):
		return http.StatusConflict, "auction state does not allow this action"
	case errors.Is(err, auctionerrors.ErrNotOwner):
		return http.StatusForbidden, "not the auction owner"
	case errors.Is(err, auctionerrors.ErrBiddingBusy):
		return http.StatusServiceUnavailable, "auction is busy, please retry"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusOK, "no bids found for auction"
	case errors.Is(err, auctionerrors.ErrBidderNoBids):
		return http.StatusOK, "no bids found for user"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// ToBidResponse converts a bid record to its response DTO
func ToBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:       bid.BidID,
		AuctionID:   bid.AuctionID,
		BidderID:    bid.BidderID,
		Amount:      bid.Amount,
		SubmittedAt: bid.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

// ToAuctionResponse converts an auction record to its response DTO. The
// reserve price deliberately never appears in responses.
func ToAuctionResponse(auction model.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:        auction.AuctionID,
		SellerID:         auction.SellerID,
		VehicleRef:       auction.VehicleRef,
		StartingPrice:    auction.StartingPrice,
		BuyNowPrice:      auction.BuyNowPrice,
		ScheduledStart:   auction.ScheduledStart.UTC().Format(time.RFC3339),
		ScheduledEnd:     auction.ScheduledEnd.UTC().Format(time.RFC3339),
		Status:           string(auction.Status),
		HighestBidAmount: auction.HighestBidAmount,
		BidCount:         auction.BidCount,
		Unsold:           auction.Unsold,
	}
}
