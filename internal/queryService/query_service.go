package query

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"autohub-auctions/internal/anonymize"
	"autohub-auctions/internal/auctionerrors"
	"autohub-auctions/internal/models"
	"autohub-auctions/internal/repository"
	"autohub-auctions/utils"
)

// ProfileDirectory resolves a user's display name. Consumed only by the
// detail view; ranking never depends on it.
type ProfileDirectory interface {
	GetDisplayName(userID string) (string, error)
}

// RevealGate reports whether mutual identity reveal has been granted between
// the viewer and the seller of an auction. Implemented outside this service.
type RevealGate interface {
	IsRevealed(auctionID, viewerID string) bool
}

// denyAllGate is the default gate: nothing is ever revealed
type denyAllGate struct{}

func (denyAllGate) IsRevealed(string, string) bool { return false }

// QueryService builds the read-side projections. Pseudonyms and countdowns
// are derived at read time and never persisted; list reads tolerate slightly
// stale denormalized fields, only the write path is strict.
type QueryService struct {
	repo     repository.AuctionDB
	profiles ProfileDirectory
	gate     RevealGate
}

// NewQueryService creates a new QueryService instance. profiles may be nil
// when no directory is wired; gate defaults to deny-all.
func NewQueryService(repo repository.AuctionDB, profiles ProfileDirectory, gate RevealGate) *QueryService {
	if gate == nil {
		gate = denyAllGate{}
	}
	return &QueryService{
		repo:     repo,
		profiles: profiles,
		gate:     gate,
	}
}

// remainingAt decomposes the time left until end for live countdown display.
// Pure function of the stored end and the given instant; callers recompute it
// at whatever cadence they need.
func remainingAt(end, now time.Time) models.TimeRemaining {
	left := end.Sub(now)
	if left < 0 {
		left = 0
	}
	return models.TimeRemaining{
		Days:    int(left.Hours()) / 24,
		Hours:   int(left.Hours()) % 24,
		Minutes: int(left.Minutes()) % 60,
		Seconds: int(left.Seconds()) % 60,
	}
}

func summarize(a models.Auction, now time.Time) models.AuctionSummaryView {
	current := a.StartingPrice
	if a.HasBids() {
		current = a.HighestBidAmount
	}
	return models.AuctionSummaryView{
		AuctionID:    a.AuctionID,
		VehicleRef:   a.VehicleRef,
		CurrentPrice: current,
		BidCount:     a.BidCount,
		Status:       a.EffectiveStatus(now),
		ScheduledEnd: a.ScheduledEnd,
		Unsold:       a.Unsold,
	}
}

// ListActiveAuctions returns open auctions not owned by the viewer, soonest
// ending first.
func (s *QueryService) ListActiveAuctions(excludeSellerID string) ([]models.AuctionSummaryView, error) {
	auctions, err := s.repo.ListAuctions()
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}

	now := time.Now().UTC()
	views := make([]models.AuctionSummaryView, 0, len(auctions))
	for _, a := range auctions {
		if a.SellerID == excludeSellerID {
			continue
		}
		switch a.EffectiveStatus(now) {
		case models.StatusScheduled, models.StatusActive:
			views = append(views, summarize(a, now))
		}
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].ScheduledEnd.Before(views[j].ScheduledEnd)
	})
	return views, nil
}

// ListSellerAuctions returns the auctions a seller created, soonest ending
// first, terminal ones last.
func (s *QueryService) ListSellerAuctions(sellerID string) ([]models.AuctionSummaryView, error) {
	if sellerID == "" {
		return nil, fmt.Errorf("service: %w - empty seller ID", auctionerrors.ErrInvalidAuction)
	}

	auctions, err := s.repo.ListAuctions()
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}

	now := time.Now().UTC()
	views := make([]models.AuctionSummaryView, 0)
	for _, a := range auctions {
		if a.SellerID == sellerID {
			views = append(views, summarize(a, now))
		}
	}

	sort.Slice(views, func(i, j int) bool {
		iOpen := !views[i].Status.Terminal()
		jOpen := !views[j].Status.Terminal()
		if iOpen != jOpen {
			return iOpen
		}
		return views[i].ScheduledEnd.Before(views[j].ScheduledEnd)
	})
	return views, nil
}

// ListBidderBids returns the viewer's bids, each annotated winning or outbid
// against the auction's current highest bidder.
func (s *QueryService) ListBidderBids(bidderID string) ([]models.BidStatusView, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("service: %w - empty bidder ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByBidder(bidderID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrBidderNoBids) {
			return []models.BidStatusView{}, nil
		}
		return nil, fmt.Errorf("service: failed to get bids for bidder %s: %w", bidderID, err)
	}

	views := make([]models.BidStatusView, 0, len(bids))
	for _, b := range bids {
		auction, err := s.repo.GetAuction(b.AuctionID)
		if err != nil {
			return nil, fmt.Errorf("service: bid %s references auction %s: %w", b.BidID, b.AuctionID, err)
		}
		current := auction.StartingPrice
		if auction.HasBids() {
			current = auction.HighestBidAmount
		}
		views = append(views, models.BidStatusView{
			Bid:          b,
			AuctionID:    auction.AuctionID,
			VehicleRef:   auction.VehicleRef,
			CurrentPrice: current,
			Winning:      auction.HighestBidderID == bidderID,
		})
	}
	return views, nil
}

// GetBidHistory returns the ranked bids of an auction with every bidder
// identity replaced by an auction-scoped pseudonym. The head entry is flagged
// as winning. A disagreement between the ranking head and the auction's
// denormalized highest bid is an invariant violation: it is logged loudly and
// the read fails instead of being silently corrected.
func (s *QueryService) GetBidHistory(auctionID string) ([]models.AnonymizedBidView, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	// Auction record and ledger must come out of one snapshot: two separate
	// reads could straddle a concurrent commit and disagree spuriously.
	auction, ranked, err := s.repo.GetAuctionWithRankedBids(auctionID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrNoBids) {
			return []models.AnonymizedBidView{}, nil
		}
		return nil, fmt.Errorf("service: bid history: %w", err)
	}

	head := ranked[0]
	if head.BidderID != auction.HighestBidderID || head.Amount != auction.HighestBidAmount {
		utils.Error("bid ledger and auction record disagree", map[string]any{
			"auction_id":         auctionID,
			"ledger_top_bidder":  anonymize.Pseudonym(auctionID, head.BidderID),
			"ledger_top_amount":  head.Amount,
			"auction_top_amount": auction.HighestBidAmount,
			"auction_bid_count":  auction.BidCount,
			"ledger_bid_count":   len(ranked),
		})
		return nil, fmt.Errorf("service: auction %s: %w", auctionID, auctionerrors.ErrIntegrity)
	}

	views := make([]models.AnonymizedBidView, 0, len(ranked))
	for i, b := range ranked {
		views = append(views, models.AnonymizedBidView{
			Pseudonym:   anonymize.Pseudonym(auctionID, b.BidderID),
			Amount:      b.Amount,
			SubmittedAt: b.SubmittedAt,
			IsWinning:   i == 0,
		})
	}
	return views, nil
}

// GetAuctionDetail merges an auction with viewer-dependent display fields:
// the live countdown, the viewer's standing, and the seller's display name
// (masked unless the reveal gate grants it). The reserve price is stripped
// for everyone but the owner.
func (s *QueryService) GetAuctionDetail(auctionID, viewerID string) (models.AuctionDetailView, error) {
	if auctionID == "" {
		return models.AuctionDetailView{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}

	auction, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return models.AuctionDetailView{}, fmt.Errorf("service: auction detail: %w", err)
	}

	now := time.Now().UTC()
	isSeller := viewerID != "" && viewerID == auction.SellerID
	isWinning := viewerID != "" && viewerID == auction.HighestBidderID
	if !isSeller {
		// The reserve is hidden from bidders
		auction.ReservePrice = 0
	}
	if !isSeller && !isWinning {
		// The leader's durable identity stays behind the pseudonym mask;
		// only the seller and the leader themself may see it
		auction.HighestBidderID = ""
	}

	view := models.AuctionDetailView{
		Auction:       auction,
		Status:        auction.EffectiveStatus(now),
		TimeRemaining: remainingAt(auction.ScheduledEnd, now),
		IsSeller:      isSeller,
		IsWinning:     isWinning,
	}

	if !isSeller && s.profiles != nil {
		name, err := s.profiles.GetDisplayName(auction.SellerID)
		if err != nil {
			// Display name is cosmetic; the view is still valid without it
			utils.Debug("display name lookup failed", map[string]any{
				"auction_id": auctionID,
				"error":      err.Error(),
			})
		} else if s.gate.IsRevealed(auctionID, viewerID) {
			view.SellerDisplay = name
		} else {
			view.SellerDisplay = anonymize.MaskName(name)
		}
	}
	return view, nil
}
