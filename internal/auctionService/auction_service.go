package auction

import (
	"errors"
	"fmt"
	"time"

	"autohub-auctions/internal/auctionerrors"
	"autohub-auctions/internal/keylock"
	"autohub-auctions/internal/models"
	"autohub-auctions/internal/repository"
	"autohub-auctions/utils"
)

const defaultDurationDays = 7

// Config carries the lifecycle policy knobs for the auction service
type Config struct {
	// AllowCancelWithBids permits cancelling an auction that already has
	// accepted bids. Off in normal operation; administrative wiring may
	// enable it. Cancelled bids stay in the ledger untouched.
	AllowCancelWithBids bool

	// LockTimeout bounds how long the sweep waits for a per-auction lock
	// before skipping the auction until the next tick.
	LockTimeout time.Duration
}

// AuctionService owns the auction lifecycle: creation, cancellation and the
// scheduled/active/ended sweep. Price and bidder fields are mutated only by
// the bidding service.
type AuctionService struct {
	repo  repository.AuctionDB
	locks *keylock.KeyLock
	cfg   Config
}

// NewAuctionService creates a new AuctionService instance. The lock set must
// be shared with the bidding service so lifecycle transitions and bids on the
// same auction are serialized.
func NewAuctionService(repo repository.AuctionDB, locks *keylock.KeyLock, cfg Config) *AuctionService {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 250 * time.Millisecond
	}
	return &AuctionService{
		repo:  repo,
		locks: locks,
		cfg:   cfg,
	}
}

// CreateAuction validates the parameters and stores a new auction. An auction
// whose start is not in the future begins active immediately.
func (s *AuctionService) CreateAuction(params models.CreateAuctionParams) (models.Auction, error) {
	if params.SellerID == "" || params.VehicleRef == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing sellerID or vehicleRef", auctionerrors.ErrInvalidAuction)
	}
	if params.StartingPrice <= 0 {
		return models.Auction{}, fmt.Errorf("service: %w - non-positive starting price", auctionerrors.ErrInvalidAuction)
	}
	if params.ReservePrice < 0 || params.BuyNowPrice < 0 {
		return models.Auction{}, fmt.Errorf("service: %w - negative price bound", auctionerrors.ErrInvalidAuction)
	}
	if params.BuyNowPrice > 0 && params.BuyNowPrice < params.StartingPrice {
		return models.Auction{}, fmt.Errorf("service: %w - buy-now below starting price", auctionerrors.ErrInvalidAuction)
	}
	// A buy-now purchase ends the auction sold, so it must clear the reserve
	if params.BuyNowPrice > 0 && params.BuyNowPrice < params.ReservePrice {
		return models.Auction{}, fmt.Errorf("service: %w - buy-now below reserve price", auctionerrors.ErrInvalidAuction)
	}

	now := time.Now().UTC()
	start := params.ScheduledStart
	if start.IsZero() {
		start = now
	}
	days := params.DurationDays
	if days <= 0 {
		days = defaultDurationDays
	}
	end := start.AddDate(0, 0, days)

	status := models.StatusActive
	if start.After(now) {
		status = models.StatusScheduled
	}

	auction := models.Auction{
		AuctionID:      utils.GenerateID(),
		SellerID:       params.SellerID,
		VehicleRef:     params.VehicleRef,
		StartingPrice:  params.StartingPrice,
		ReservePrice:   params.ReservePrice,
		BuyNowPrice:    params.BuyNowPrice,
		ScheduledStart: start,
		ScheduledEnd:   end,
		Status:         status,
		CreatedAt:      now,
	}

	if err := s.repo.CreateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction for seller %s: %w", params.SellerID, err)
	}

	utils.Info("auction created", map[string]any{
		"auction_id":  auction.AuctionID,
		"seller_id":   auction.SellerID,
		"vehicle_ref": auction.VehicleRef,
		"status":      auction.Status,
		"ends_at":     auction.ScheduledEnd,
	})
	return auction, nil
}

// CancelAuction moves an auction to the cancelled terminal state. Only the
// owning seller may cancel, only from scheduled or active, and only while the
// auction has no bids unless AllowCancelWithBids is set.
func (s *AuctionService) CancelAuction(auctionID, actingSellerID string) (models.Auction, error) {
	if auctionID == "" || actingSellerID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing auctionID or sellerID", auctionerrors.ErrInvalidAuction)
	}

	release, err := s.locks.Acquire(auctionID, s.cfg.LockTimeout)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: cancel auction %s: %w", auctionID, auctionerrors.ErrBiddingBusy)
	}
	defer release()

	auction, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: cancel auction: %w", err)
	}

	if auction.SellerID != actingSellerID {
		return models.Auction{}, fmt.Errorf("service: cancel auction %s: %w", auctionID, auctionerrors.ErrNotOwner)
	}

	now := time.Now().UTC()
	switch status := auction.EffectiveStatus(now); status {
	case models.StatusScheduled, models.StatusActive:
		// cancellable
	default:
		return models.Auction{}, fmt.Errorf("service: cancel auction %s in state %s: %w", auctionID, status, auctionerrors.ErrInvalidState)
	}

	if auction.HasBids() && !s.cfg.AllowCancelWithBids {
		return models.Auction{}, fmt.Errorf("service: cancel auction %s with %d bids: %w", auctionID, auction.BidCount, auctionerrors.ErrInvalidState)
	}

	auction.Status = models.StatusCancelled
	if err := s.repo.UpdateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: cancel auction: %w", err)
	}

	utils.Info("auction cancelled", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  actingSellerID,
		"bid_count":  auction.BidCount,
	})
	return auction, nil
}

// SweepOnce persists all due lifecycle transitions: scheduled auctions past
// their start become active, open auctions past their end become ended
// (marked unsold when the reserve was not met). Returns the number of
// transitions applied.
func (s *AuctionService) SweepOnce(now time.Time) (int, error) {
	auctions, err := s.repo.ListAuctions()
	if err != nil {
		return 0, fmt.Errorf("service: sweep: %w", err)
	}

	transitions := 0
	for _, a := range auctions {
		if a.Status.Terminal() {
			continue
		}
		effective := a.EffectiveStatus(now)
		if effective == a.Status {
			continue
		}
		if err := s.applyTransition(a.AuctionID, now); err != nil {
			// Skip and retry on the next tick; the read path already
			// reports the effective status.
			utils.Warn("sweep: transition skipped", map[string]any{
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		transitions++
	}
	return transitions, nil
}

// applyTransition re-reads one auction under its lock and persists its
// effective status.
func (s *AuctionService) applyTransition(auctionID string, now time.Time) error {
	release, err := s.locks.Acquire(auctionID, s.cfg.LockTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", auctionerrors.ErrBiddingBusy, err)
	}
	defer release()

	auction, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return err
	}
	if auction.Status.Terminal() {
		return fmt.Errorf("auction %s already %s: %w", auctionID, auction.Status, auctionerrors.ErrInvalidState)
	}

	effective := auction.EffectiveStatus(now)
	if effective == auction.Status {
		return nil
	}

	auction.Status = effective
	if effective == models.StatusEnded {
		auction.Unsold = !auction.HasBids() || !auction.ReserveMet()
	}

	if err := s.repo.UpdateAuction(auction); err != nil {
		return err
	}

	fields := map[string]any{
		"auction_id": auction.AuctionID,
		"status":     auction.Status,
	}
	if effective == models.StatusEnded {
		fields["unsold"] = auction.Unsold
		fields["winner_id"] = auction.HighestBidderID
		fields["final_amount"] = auction.HighestBidAmount
	}
	utils.Info("auction transitioned", fields)
	return nil
}

// RunSweeper runs SweepOnce on the given interval until stop is closed.
// Intended to be started from main as a background goroutine; auction
// durations are measured in days, so second-granularity intervals are plenty.
func (s *AuctionService) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(time.Now().UTC()); err != nil && !errors.Is(err, auctionerrors.ErrBiddingBusy) {
				utils.Error("sweep failed", map[string]any{"error": err.Error()})
			}
		case <-stop:
			return
		}
	}
}
