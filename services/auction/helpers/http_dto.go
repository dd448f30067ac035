package helpers

import "time"

// Request/Response DTOs
type CreateAuctionRequest struct {
	SellerID       string     `json:"seller_id" binding:"required"`
	VehicleRef     string     `json:"vehicle_ref" binding:"required"`
	StartingPrice  float64    `json:"starting_price" binding:"required,gt=0"`
	ReservePrice   float64    `json:"reserve_price" binding:"omitempty,gte=0"`
	BuyNowPrice    float64    `json:"buy_now_price" binding:"omitempty,gte=0"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	DurationDays   int        `json:"duration_days" binding:"omitempty,gte=1,lte=30"`
}

type PlaceBidRequest struct {
	BidderID string  `json:"bidder_id" binding:"required"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
}

type CancelAuctionRequest struct {
	SellerID string `json:"seller_id" binding:"required"`
}

type BidResponse struct {
	BidID       string  `json:"bid_id"`
	AuctionID   string  `json:"auction_id"`
	BidderID    string  `json:"bidder_id"`
	Amount      float64 `json:"amount"`
	SubmittedAt string  `json:"submitted_at"`
}

type AuctionResponse struct {
	AuctionID        string  `json:"auction_id"`
	SellerID         string  `json:"seller_id"`
	VehicleRef       string  `json:"vehicle_ref"`
	StartingPrice    float64 `json:"starting_price"`
	BuyNowPrice      float64 `json:"buy_now_price,omitempty"`
	ScheduledStart   string  `json:"scheduled_start"`
	ScheduledEnd     string  `json:"scheduled_end"`
	Status           string  `json:"status"`
	HighestBidAmount float64 `json:"highest_bid_amount"`
	BidCount         int     `json:"bid_count"`
	Unsold           bool    `json:"unsold"`
}
