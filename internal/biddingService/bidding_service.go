package bidding

import (
	"fmt"
	"time"

	"autohub-auctions/internal/auctionerrors"
	"autohub-auctions/internal/keylock"
	"autohub-auctions/internal/models"
	"autohub-auctions/internal/repository"
	"autohub-auctions/utils"
)

// Notifier receives fire-and-forget notices after a successful bid. The
// protocol never waits on it and never fails because of it.
type Notifier interface {
	OutbidNotice(auctionID, outbidBidderID string, newAmount float64)
}

// NopNotifier discards all notices
type NopNotifier struct{}

func (NopNotifier) OutbidNotice(string, string, float64) {}

// Policy carries the bid acceptance knobs
type Policy struct {
	// MinIncrement is the smallest amount a new bid must exceed the current
	// highest by. The first bid only has to meet the starting price.
	MinIncrement float64

	// LockTimeout bounds how long PlaceBid waits for the per-auction lock
	// before failing with the retryable ErrBiddingBusy.
	LockTimeout time.Duration
}

// BiddingService implements the bid acceptance protocol: it is the only
// writer of an auction's highest-bid fields, and it serializes concurrent
// bids per auction so only a strictly increasing amount sequence is ever
// committed.
type BiddingService struct {
	repo     repository.AuctionDB
	locks    *keylock.KeyLock
	notifier Notifier
	policy   Policy
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, locks *keylock.KeyLock, notifier Notifier, policy Policy) *BiddingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if policy.MinIncrement <= 0 {
		policy.MinIncrement = 100
	}
	if policy.LockTimeout <= 0 {
		policy.LockTimeout = 250 * time.Millisecond
	}
	return &BiddingService{
		repo:     repo,
		locks:    locks,
		notifier: notifier,
		policy:   policy,
	}
}

// PlaceBid validates and commits a single bid. The read of the current
// highest bid and the write of the new one are indivisible with respect to
// other PlaceBid calls on the same auction; bids on different auctions never
// block each other.
func (s *BiddingService) PlaceBid(auctionID, bidderID string, amount float64) (models.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	release, err := s.locks.Acquire(auctionID, s.policy.LockTimeout)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: place bid on auction %s: %w", auctionID, auctionerrors.ErrBiddingBusy)
	}
	defer release()

	auction, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: place bid: %w", err)
	}

	now := time.Now().UTC()
	if err := s.validateBid(auction, bidderID, amount, now); err != nil {
		return models.Bid{}, err
	}

	bid := models.Bid{
		BidID:       utils.GenerateID(),
		AuctionID:   auctionID,
		BidderID:    bidderID,
		Amount:      amount,
		SubmittedAt: now,
	}

	outbid := auction.HighestBidderID

	auction.HighestBidAmount = amount
	auction.HighestBidderID = bidderID
	auction.BidCount++
	if auction.BuyNowPrice > 0 && amount >= auction.BuyNowPrice {
		// Buy-now met: the auction ends immediately in the bidder's favor
		auction.Status = models.StatusEnded
		auction.Unsold = false
	}

	if err := s.repo.CommitBid(bid, auction); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to commit bid for auction %s by bidder %s: %w", auctionID, bidderID, err)
	}

	utils.Info("bid accepted", map[string]any{
		"auction_id": auctionID,
		"bid_id":     bid.BidID,
		"amount":     amount,
		"bid_count":  auction.BidCount,
		"buy_now":    auction.Status == models.StatusEnded,
	})

	if outbid != "" && outbid != bidderID {
		// Fire-and-forget; the accepted bid does not depend on delivery
		go s.notifier.OutbidNotice(auctionID, outbid, amount)
	}

	return bid, nil
}

// validateBid checks the business rules for a single bid against the loaded
// auction state. Called with the per-auction lock held.
func (s *BiddingService) validateBid(auction models.Auction, bidderID string, amount float64, now time.Time) error {
	if status := auction.EffectiveStatus(now); status != models.StatusActive {
		return fmt.Errorf("service: auction %s is %s: %w", auction.AuctionID, status, auctionerrors.ErrAuctionNotActive)
	}
	if bidderID == auction.SellerID {
		return fmt.Errorf("service: bidder %s owns auction %s: %w", bidderID, auction.AuctionID, auctionerrors.ErrSelfBid)
	}

	if !auction.HasBids() {
		if amount < auction.StartingPrice {
			return fmt.Errorf("service: %w - starting price is %.2f", auctionerrors.ErrBidTooLow, auction.StartingPrice)
		}
		return nil
	}
	if amount < auction.HighestBidAmount+s.policy.MinIncrement {
		return fmt.Errorf("service: %w - current highest bid is %.2f, minimum increment %.2f",
			auctionerrors.ErrBidTooLow, auction.HighestBidAmount, s.policy.MinIncrement)
	}
	return nil
}

// GetBidsForAuction returns all bids for an auction in acceptance order
func (s *BiddingService) GetBidsForAuction(auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetWinningBid returns the highest-ranked bid for an auction
func (s *BiddingService) GetWinningBid(auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	winning, err := s.repo.GetWinningBid(auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get winning bid for auction %s: %w", auctionID, err)
	}
	return winning, nil
}
