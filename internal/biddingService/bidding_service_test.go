package bidding

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"autohub-auctions/internal/auctionerrors"
	"autohub-auctions/internal/keylock"
	model "autohub-auctions/internal/models"
	"autohub-auctions/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func activeAuction(auctionID, sellerID string, startingPrice float64) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:      auctionID,
		SellerID:       sellerID,
		VehicleRef:     "vehicle-" + auctionID,
		StartingPrice:  startingPrice,
		ScheduledStart: now.Add(-time.Hour),
		ScheduledEnd:   now.Add(24 * time.Hour),
		Status:         model.StatusActive,
		CreatedAt:      now,
	}
}

// Tests PlaceBid
func TestBiddingService_PlaceBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo, keylock.New(), nil, Policy{MinIncrement: 100})

	now := time.Now().UTC()

	withBids := activeAuction("auction1", "seller1", 50000)
	withBids.HighestBidAmount = 51000
	withBids.HighestBidderID = "bidder9"
	withBids.BidCount = 3

	scheduled := activeAuction("auction1", "seller1", 50000)
	scheduled.Status = model.StatusScheduled
	scheduled.ScheduledStart = now.Add(time.Hour)

	expired := activeAuction("auction1", "seller1", 50000)
	expired.ScheduledEnd = now.Add(-time.Minute) // stored status still active

	cancelled := activeAuction("auction1", "seller1", 50000)
	cancelled.Status = model.StatusCancelled

	// Table-driven test cases
	tests := []struct {
		name          string
		auctionID     string
		bidderID      string
		amount        float64
		mockSetup     func()
		expectedError error
	}{
		{
			name:      "valid_first_bid",
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    50000,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(activeAuction("auction1", "seller1", 50000), nil)
				mockRepo.EXPECT().CommitBid(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			bidderID:      "bidder1",
			amount:        50000,
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "empty_bidderID",
			auctionID:     "auction1",
			bidderID:      "",
			amount:        50000,
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "zero_amount",
			auctionID:     "auction1",
			bidderID:      "bidder1",
			amount:        0,
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "negative_amount",
			auctionID:     "auction1",
			bidderID:      "bidder1",
			amount:        -50,
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:      "auction_not_found",
			auctionID: "auctionX",
			bidderID:  "bidder1",
			amount:    50000,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auctionX").Return(model.Auction{}, auctionerrors.ErrAuctionNotFound)
			},
			expectedError: auctionerrors.ErrAuctionNotFound,
		},
		{
			name:      "scheduled_auction_not_biddable",
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    50000,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(scheduled, nil)
			},
			expectedError: auctionerrors.ErrAuctionNotActive,
		},
		{
			name:      "expired_auction_not_biddable",
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    99000,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(expired, nil)
			},
			expectedError: auctionerrors.ErrAuctionNotActive,
		},
		{
			name:      "cancelled_auction_not_biddable",
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    99000,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(cancelled, nil)
			},
			expectedError: auctionerrors.ErrAuctionNotActive,
		},
		{
			name:      "seller_cannot_bid_on_own_auction",
			auctionID: "auction1",
			bidderID:  "seller1",
			amount:    100000,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(activeAuction("auction1", "seller1", 50000), nil)
			},
			expectedError: auctionerrors.ErrSelfBid,
		},
		{
			name:      "first_bid_below_starting_price",
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    49999,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(activeAuction("auction1", "seller1", 50000), nil)
			},
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "equal_to_current_highest",
			auctionID: "auction1",
			bidderID:  "bidder2",
			amount:    51000,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(withBids, nil)
			},
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "below_minimum_increment",
			auctionID: "auction1",
			bidderID:  "bidder2",
			amount:    51050,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(withBids, nil)
			},
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "meets_minimum_increment",
			auctionID: "auction1",
			bidderID:  "bidder2",
			amount:    51100,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(withBids, nil)
				mockRepo.EXPECT().CommitBid(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:      "repo_commit_fails",
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    52000,
			mockSetup: func() {
				mockRepo.EXPECT().GetAuction("auction1").Return(activeAuction("auction1", "seller1", 50000), nil)
				mockRepo.EXPECT().CommitBid(gomock.Any(), gomock.Any()).Return(errors.New("repo write failed"))
			},
			expectedError: nil, // service wraps the repo error, no sentinel to match
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			bid, err := service.PlaceBid(tc.auctionID, tc.bidderID, tc.amount)

			switch {
			case tc.expectedError != nil:
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
			case tc.name == "repo_commit_fails":
				require.Error(t, err)
			default:
				require.NoError(t, err)

				require.NotEmpty(t, bid.BidID)
				_, parseErr := uuid.Parse(bid.BidID)
				require.NoError(t, parseErr, "BidID should be a valid UUID")

				require.Equal(t, tc.auctionID, bid.AuctionID)
				require.Equal(t, tc.bidderID, bid.BidderID)
				require.Equal(t, tc.amount, bid.Amount)
				require.WithinDuration(t, now, bid.SubmittedAt, 2*time.Second)
			}
		})
	}
}

// Tests the denormalized auction fields written alongside an accepted bid
func TestBiddingService_PlaceBid_UpdatesAuction(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo, keylock.New(), nil, Policy{MinIncrement: 100})

	t.Run("highest_bid_fields_and_count", func(t *testing.T) {
		auction := activeAuction("auction1", "seller1", 50000)
		auction.HighestBidAmount = 51000
		auction.HighestBidderID = "bidder9"
		auction.BidCount = 3

		var committed model.Auction
		mockRepo.EXPECT().GetAuction("auction1").Return(auction, nil)
		mockRepo.EXPECT().CommitBid(gomock.Any(), gomock.Any()).
			DoAndReturn(func(bid model.Bid, updated model.Auction) error {
				committed = updated
				return nil
			})

		_, err := service.PlaceBid("auction1", "bidder2", 52000)
		require.NoError(t, err)
		require.Equal(t, 52000.0, committed.HighestBidAmount)
		require.Equal(t, "bidder2", committed.HighestBidderID)
		require.Equal(t, 4, committed.BidCount)
		require.Equal(t, model.StatusActive, committed.Status)
	})

	t.Run("buy_now_ends_auction_immediately", func(t *testing.T) {
		auction := activeAuction("auction1", "seller1", 50000)
		auction.BuyNowPrice = 90000

		var committed model.Auction
		mockRepo.EXPECT().GetAuction("auction1").Return(auction, nil)
		mockRepo.EXPECT().CommitBid(gomock.Any(), gomock.Any()).
			DoAndReturn(func(bid model.Bid, updated model.Auction) error {
				committed = updated
				return nil
			})

		_, err := service.PlaceBid("auction1", "bidder1", 90000)
		require.NoError(t, err)
		require.Equal(t, model.StatusEnded, committed.Status)
		require.False(t, committed.Unsold)
		require.Equal(t, "bidder1", committed.HighestBidderID)
	})
}

// chanNotifier records outbid notices for assertions
type chanNotifier struct {
	notices chan string
}

func (n chanNotifier) OutbidNotice(auctionID, outbidBidderID string, newAmount float64) {
	n.notices <- outbidBidderID
}

// Tests the fire-and-forget outbid notification
func TestBiddingService_PlaceBid_OutbidNotice(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	notifier := chanNotifier{notices: make(chan string, 1)}
	service := NewBiddingService(repo, keylock.New(), notifier, Policy{MinIncrement: 100})

	require.NoError(t, repo.CreateAuction(activeAuction("auction1", "seller1", 50000)))

	_, err := service.PlaceBid("auction1", "bidder1", 50000)
	require.NoError(t, err)

	_, err = service.PlaceBid("auction1", "bidder2", 51000)
	require.NoError(t, err)

	select {
	case outbid := <-notifier.notices:
		require.Equal(t, "bidder1", outbid)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an outbid notice for the previous highest bidder")
	}
}

// Tests the concurrency contract: no lost updates, strictly increasing
// committed amounts, denormalized fields matching the ranking head.
func TestBiddingService_PlaceBid_Concurrent(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	service := NewBiddingService(repo, keylock.New(), nil, Policy{
		MinIncrement: 1,
		LockTimeout:  2 * time.Second,
	})

	require.NoError(t, repo.CreateAuction(activeAuction("auction1", "seller1", 100)))

	const bidders = 40
	var mu sync.Mutex
	accepted := make(map[float64]int) // amount -> acceptance count

	var g errgroup.Group
	for i := 0; i < bidders; i++ {
		i := i
		g.Go(func() error {
			amount := float64(101 + i)
			bidderID := fmt.Sprintf("bidder-%d", i)
			for attempt := 0; attempt < 50; attempt++ {
				_, err := service.PlaceBid("auction1", bidderID, amount)
				switch {
				case err == nil:
					mu.Lock()
					accepted[amount]++
					mu.Unlock()
					return nil
				case errors.Is(err, auctionerrors.ErrBiddingBusy):
					time.Sleep(5 * time.Millisecond)
					continue
				case errors.Is(err, auctionerrors.ErrBidTooLow):
					// A higher concurrent bid was committed first
					return nil
				default:
					return fmt.Errorf("bidder %s: %w", bidderID, err)
				}
			}
			return fmt.Errorf("bidder %s: starved on lock", bidderID)
		})
	}
	require.NoError(t, g.Wait())

	// No bid is ever accepted twice
	for amount, count := range accepted {
		require.Equal(t, 1, count, "amount %.0f accepted %d times", amount, count)
	}

	// The maximum submitted amount can never be outbid, so it must have landed
	maxAmount := float64(101 + bidders - 1)
	require.Equal(t, 1, accepted[maxAmount])

	auction, err := repo.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, maxAmount, auction.HighestBidAmount)

	// Committed amounts are strictly increasing in acceptance order
	bids, err := repo.GetBidsByAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, len(bids), auction.BidCount)
	for i := 1; i < len(bids); i++ {
		require.Greater(t, bids[i].Amount, bids[i-1].Amount,
			"bid %d (%.0f) must exceed bid %d (%.0f)", i, bids[i].Amount, i-1, bids[i-1].Amount)
	}

	// Denormalized highest always equals the ranking head
	winning, err := repo.GetWinningBid("auction1")
	require.NoError(t, err)
	require.Equal(t, auction.HighestBidAmount, winning.Amount)
	require.Equal(t, auction.HighestBidderID, winning.BidderID)
}

// Tests GetBidsForAuction
func TestBiddingService_GetBidsForAuction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo, keylock.New(), nil, Policy{})

	now := time.Now().UTC()
	bidsExample := []model.Bid{
		{BidID: "bid1", AuctionID: "auction1", BidderID: "bidder1", Amount: 100, SubmittedAt: now},
		{BidID: "bid2", AuctionID: "auction1", BidderID: "bidder2", Amount: 150, SubmittedAt: now.Add(time.Second)},
	}

	tests := []struct {
		name          string
		auctionID     string
		mockSetup     func()
		expectError   bool
		expectedError error
		expectedBids  []model.Bid
	}{
		{
			name:      "auction_with_bids",
			auctionID: "auction1",
			mockSetup: func() {
				mockRepo.EXPECT().GetBidsByAuction("auction1").Return(bidsExample, nil)
			},
			expectedBids: bidsExample,
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:      "repo_error",
			auctionID: "auction2",
			mockSetup: func() {
				mockRepo.EXPECT().GetBidsByAuction("auction2").Return(nil, errors.New("db failure"))
			},
			expectError: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			bids, err := service.GetBidsForAuction(tc.auctionID)

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError))
				}
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.expectedBids, bids)
			}
		})
	}
}

// Test GetWinningBid
func TestBiddingService_GetWinningBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo, keylock.New(), nil, Policy{})

	t.Run("returns_ranking_head", func(t *testing.T) {
		winning := model.Bid{BidID: "bid1", AuctionID: "auction1", BidderID: "bidder1", Amount: 52000}
		mockRepo.EXPECT().GetWinningBid("auction1").Return(winning, nil)

		bid, err := service.GetWinningBid("auction1")
		require.NoError(t, err)
		require.Equal(t, winning, bid)
	})

	t.Run("empty_auctionID", func(t *testing.T) {
		_, err := service.GetWinningBid("")
		require.True(t, errors.Is(err, auctionerrors.ErrInvalidBid))
	})

	t.Run("no_bids", func(t *testing.T) {
		mockRepo.EXPECT().GetWinningBid("auction2").Return(model.Bid{}, auctionerrors.ErrNoBids)

		_, err := service.GetWinningBid("auction2")
		require.True(t, errors.Is(err, auctionerrors.ErrNoBids))
	})
}
