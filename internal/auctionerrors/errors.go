package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrBidderNoBids    = errors.New("bidder has not placed any bids")
	ErrDuplicateID     = errors.New("auction id already exists")
)

// business logic errors (client-caused, never retried automatically)
var (
	ErrInvalidBid       = errors.New("invalid bid")
	ErrBidTooLow        = errors.New("bid amount too low")
	ErrSelfBid          = errors.New("seller cannot bid on own auction")
	ErrAuctionNotActive = errors.New("auction is not open for bidding")
	ErrInvalidState     = errors.New("invalid auction state transition")
	ErrNotOwner         = errors.New("acting user does not own this auction")
	ErrInvalidAuction   = errors.New("invalid auction parameters")
)

// contention errors (transient, safe to retry)
var (
	ErrBiddingBusy = errors.New("auction is busy, retry bid")
)

// integrity errors (invariant violations; a bug, not a user error)
var (
	ErrIntegrity = errors.New("auction state disagrees with bid ledger")
)
