package models

import "time"

// AuctionStatus is the stored lifecycle state of an auction.
// Transitions are one-directional: scheduled -> active -> {ended, cancelled}.
type AuctionStatus string

const (
	StatusScheduled AuctionStatus = "scheduled"
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusCancelled AuctionStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s AuctionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// Auction represents a time-boxed sale of one vehicle.
// HighestBidAmount, HighestBidderID and BidCount are denormalized from the
// bid ledger; they are mutated only through the bid acceptance protocol and
// the lifecycle sweep.
type Auction struct {
	AuctionID        string        `json:"auction_id"`
	SellerID         string        `json:"seller_id"`
	VehicleRef       string        `json:"vehicle_ref"`
	StartingPrice    float64       `json:"starting_price"`
	ReservePrice     float64       `json:"reserve_price,omitempty"` // 0 = no reserve; hidden from bidders
	BuyNowPrice      float64       `json:"buy_now_price,omitempty"` // 0 = no buy-now
	ScheduledStart   time.Time     `json:"scheduled_start"`
	ScheduledEnd     time.Time     `json:"scheduled_end"`
	Status           AuctionStatus `json:"status"`
	HighestBidAmount float64       `json:"highest_bid_amount"` // 0 while HighestBidderID is empty
	HighestBidderID  string        `json:"highest_bidder_id,omitempty"`
	BidCount         int           `json:"bid_count"`
	Unsold           bool          `json:"unsold"` // ended below reserve
	CreatedAt        time.Time     `json:"created_at"`
}

// HasBids reports whether at least one bid has been accepted.
func (a Auction) HasBids() bool {
	return a.BidCount > 0
}

// EffectiveStatus derives the lifecycle state at the given instant from the
// stored status and the scheduled window. Read paths always use it, so an
// auction whose end has passed reads as ended even before the sweep has
// persisted the transition, and a scheduled auction is never biddable before
// its start.
func (a Auction) EffectiveStatus(now time.Time) AuctionStatus {
	if a.Status.Terminal() {
		return a.Status
	}
	if !now.Before(a.ScheduledEnd) {
		return StatusEnded
	}
	if now.Before(a.ScheduledStart) {
		return StatusScheduled
	}
	return StatusActive
}

// ReserveMet reports whether the highest bid satisfies the reserve price.
// Auctions without a reserve are always considered met.
func (a Auction) ReserveMet() bool {
	return a.ReservePrice == 0 || a.HighestBidAmount >= a.ReservePrice
}

// Bid represents one accepted price offer on an auction. Immutable once committed.
type Bid struct {
	BidID       string    `json:"bid_id"`
	AuctionID   string    `json:"auction_id"`
	BidderID    string    `json:"bidder_id"`
	Amount      float64   `json:"amount"`
	SubmittedAt time.Time `json:"submitted_at"`
	IsAutomatic bool      `json:"is_automatic"` // reserved for proxy bidding, unused by validation
}

// CreateAuctionParams carries the caller-supplied fields for a new auction.
type CreateAuctionParams struct {
	SellerID       string
	VehicleRef     string
	StartingPrice  float64
	ReservePrice   float64
	BuyNowPrice    float64
	ScheduledStart time.Time // zero value = start immediately
	DurationDays   int
}

// TimeRemaining is the countdown to an auction's scheduled end, decomposed for
// display. All zero once the end has passed.
type TimeRemaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// AuctionSummaryView is the list-view projection of an auction. The reserve
// price never appears here.
type AuctionSummaryView struct {
	AuctionID    string        `json:"auction_id"`
	VehicleRef   string        `json:"vehicle_ref"`
	CurrentPrice float64       `json:"current_price"` // highest bid, or starting price if none
	BidCount     int           `json:"bid_count"`
	Status       AuctionStatus `json:"status"` // time-derived effective status
	ScheduledEnd time.Time     `json:"scheduled_end"`
	Unsold       bool          `json:"unsold"`
}

// AuctionDetailView merges an auction with viewer-dependent display fields.
type AuctionDetailView struct {
	Auction       Auction       `json:"auction"`
	Status        AuctionStatus `json:"status"` // time-derived effective status
	TimeRemaining TimeRemaining `json:"time_remaining"`
	IsSeller      bool          `json:"is_seller"`
	IsWinning     bool          `json:"is_winning"` // viewer currently holds the highest bid
	SellerDisplay string        `json:"seller_display,omitempty"`
}

// BidStatusView annotates one of the viewer's bids with its standing.
type BidStatusView struct {
	Bid          Bid     `json:"bid"`
	AuctionID    string  `json:"auction_id"`
	VehicleRef   string  `json:"vehicle_ref"`
	CurrentPrice float64 `json:"current_price"`
	Winning      bool    `json:"winning"` // false = outbid
}

// AnonymizedBidView is a bid-history entry with the bidder identity replaced by
// an auction-scoped pseudonym. Real identifiers must never appear here.
type AnonymizedBidView struct {
	Pseudonym   string    `json:"pseudonym"`
	Amount      float64   `json:"amount"`
	SubmittedAt time.Time `json:"submitted_at"`
	IsWinning   bool      `json:"is_winning"`
}
