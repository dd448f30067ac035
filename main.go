package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	auction "autohub-auctions/internal/auctionService"
	bidding "autohub-auctions/internal/biddingService"
	"autohub-auctions/internal/keylock"
	query "autohub-auctions/internal/queryService"
	"autohub-auctions/internal/repository"
	"autohub-auctions/internal/server"
	handler "autohub-auctions/services/auction/handler"
	"autohub-auctions/utils"
)

func main() {
	repo := repository.NewMemoryRepo()
	locks := keylock.New()

	auctionSvc := auction.NewAuctionService(repo, locks, auction.Config{
		AllowCancelWithBids: false,
		LockTimeout:         lockTimeout(),
	})
	biddingSvc := bidding.NewBiddingService(repo, locks, logNotifier{}, bidding.Policy{
		MinIncrement: minIncrement(),
		LockTimeout:  lockTimeout(),
	})
	querySvc := query.NewQueryService(repo, demoProfiles(), nil)

	stop := make(chan struct{})
	defer close(stop)
	go auctionSvc.RunSweeper(sweepInterval(), stop)

	auctionHandler := handler.NewAuctionHandler(auctionSvc, biddingSvc, querySvc)
	router := server.SetupRouter(auctionHandler)

	port := getPort()
	fmt.Printf("Starting auction server on %s...\n", port)
	if err := router.Run(port); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// logNotifier is the default outbid notifier: it only logs. Real deployments
// plug the marketplace's push/chat transport in here.
type logNotifier struct{}

func (logNotifier) OutbidNotice(auctionID, outbidBidderID string, newAmount float64) {
	utils.Info("outbid notice", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  outbidBidderID,
		"new_amount": newAmount,
	})
}

// staticProfiles is a fixed display-name directory for local runs
type staticProfiles map[string]string

func (p staticProfiles) GetDisplayName(userID string) (string, error) {
	name, ok := p[userID]
	if !ok {
		return "", fmt.Errorf("no profile for user %s", userID)
	}
	return name, nil
}

// demoProfiles returns sample display names for local development
func demoProfiles() staticProfiles {
	return staticProfiles{
		"seller1": "Yossi Cohen",
		"seller2": "Dana Levi",
	}
}

// getPort returns the server port from env or defaults to ":8080"
func getPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":8080"
}

// sweepInterval returns the lifecycle sweep interval from env, default 5s.
// Auction durations are measured in days; seconds granularity is plenty.
func sweepInterval() time.Duration {
	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 5 * time.Second
}

// lockTimeout returns the per-auction lock acquisition bound from env, default 250ms
func lockTimeout() time.Duration {
	if v := os.Getenv("BID_LOCK_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 250 * time.Millisecond
}

// minIncrement returns the minimum bid increment from env, default 100
func minIncrement() float64 {
	if v := os.Getenv("MIN_BID_INCREMENT"); v != "" {
		if inc, err := strconv.ParseFloat(v, 64); err == nil && inc > 0 {
			return inc
		}
	}
	return 100
}
