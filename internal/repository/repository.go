package repository

import (
	"fmt"
	"sort"
	"sync"

	"autohub-auctions/internal/auctionerrors"
	model "autohub-auctions/internal/models"
)

// AuctionDB defines the storage interface for the auction engine. Bids are
// append-only: there is no update or delete for a committed bid.
type AuctionDB interface {
	CreateAuction(auction model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	UpdateAuction(auction model.Auction) error
	ListAuctions() ([]model.Auction, error)
	CommitBid(bid model.Bid, updated model.Auction) error
	GetBidsByAuction(auctionID string) ([]model.Bid, error)
	GetRankedBids(auctionID string) ([]model.Bid, error)
	GetAuctionWithRankedBids(auctionID string) (model.Auction, []model.Bid, error)
	GetWinningBid(auctionID string) (model.Bid, error)
	GetBidsByBidder(bidderID string) ([]model.Bid, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu         sync.RWMutex
	auctions   map[string]model.Auction // key: auctionID
	bids       map[string][]model.Bid   // key: auctionID -> bids in acceptance order
	bidderBids map[string][]model.Bid   // key: bidderID -> bids in acceptance order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:   make(map[string]model.Auction),
		bids:       make(map[string][]model.Bid),
		bidderBids: make(map[string][]model.Bid),
	}
}

// CreateAuction stores a new auction record
func (r *MemoryRepo) CreateAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if auction.AuctionID == "" {
		return fmt.Errorf("create auction: %w - empty auction id", auctionerrors.ErrInvalidAuction)
	}
	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, auctionerrors.ErrDuplicateID)
	}

	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns the auction with the given id
func (r *MemoryRepo) GetAuction(auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// UpdateAuction replaces a stored auction record. Used by the lifecycle sweep
// and cancellation; bid-driven updates go through CommitBid instead.
func (r *MemoryRepo) UpdateAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; !ok {
		return fmt.Errorf("update auction %s: %w", auction.AuctionID, auctionerrors.ErrAuctionNotFound)
	}

	r.auctions[auction.AuctionID] = auction
	return nil
}

// ListAuctions returns all stored auctions in unspecified order
func (r *MemoryRepo) ListAuctions() ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		auctions = append(auctions, a)
	}
	return auctions, nil
}

// CommitBid appends a bid and stores the updated parent auction in one
// critical section, so a bid is never visible without its denormalized
// auction fields or vice versa.
func (r *MemoryRepo) CommitBid(bid model.Bid, updated model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bid.AuctionID == "" || bid.BidderID == "" {
		return fmt.Errorf("commit bid: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if bid.Amount <= 0 {
		return fmt.Errorf("commit bid: %w - non-positive amount", auctionerrors.ErrInvalidBid)
	}
	if bid.AuctionID != updated.AuctionID {
		return fmt.Errorf("commit bid: %w - bid and auction ids disagree", auctionerrors.ErrInvalidBid)
	}
	if _, ok := r.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}

	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	r.bidderBids[bid.BidderID] = append(r.bidderBids[bid.BidderID], bid)
	r.auctions[updated.AuctionID] = updated
	return nil
}

// bidsByAuctionLocked copies an auction's bids; callers must hold mu.
func (r *MemoryRepo) bidsByAuctionLocked(auctionID string) ([]model.Bid, error) {
	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}

// rankBids orders bids by amount descending, ties broken by submission time
// ascending (the earlier bid keeps its position). This ordering is the single
// source of truth for who is winning.
func rankBids(bids []model.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		if bids[i].Amount != bids[j].Amount {
			return bids[i].Amount > bids[j].Amount
		}
		return bids[i].SubmittedAt.Before(bids[j].SubmittedAt)
	})
}

// GetBidsByAuction returns all bids for an auction in acceptance order
func (r *MemoryRepo) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.bidsByAuctionLocked(auctionID)
}

// GetRankedBids returns all bids for an auction in ranked order
func (r *MemoryRepo) GetRankedBids(auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	bids, err := r.bidsByAuctionLocked(auctionID)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	rankBids(bids)
	return bids, nil
}

// GetAuctionWithRankedBids returns the auction record together with its ranked
// bids out of one critical section. Readers that cross-check the denormalized
// auction fields against the ledger need this: two separate reads could
// straddle a concurrent commit and disagree without any stored invariant being
// violated. Returns the auction and ErrNoBids when the ledger is empty.
func (r *MemoryRepo) GetAuctionWithRankedBids(auctionID string) (model.Auction, []model.Bid, error) {
	r.mu.RLock()
	auction, ok := r.auctions[auctionID]
	if !ok {
		r.mu.RUnlock()
		return model.Auction{}, nil, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	bids, err := r.bidsByAuctionLocked(auctionID)
	r.mu.RUnlock()
	if err != nil {
		return auction, nil, err
	}

	rankBids(bids)
	return auction, bids, nil
}

// GetWinningBid returns the head of the ranked bids for an auction
func (r *MemoryRepo) GetWinningBid(auctionID string) (model.Bid, error) {
	ranked, err := r.GetRankedBids(auctionID)
	if err != nil {
		return model.Bid{}, err
	}
	return ranked[0], nil
}

// GetBidsByBidder returns all bids placed by a bidder in acceptance order
func (r *MemoryRepo) GetBidsByBidder(bidderID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bidderBids[bidderID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for bidder %s: %w", bidderID, auctionerrors.ErrBidderNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}
