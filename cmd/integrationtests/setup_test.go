package integrationtests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	auction "autohub-auctions/internal/auctionService"
	bidding "autohub-auctions/internal/biddingService"
	"autohub-auctions/internal/keylock"
	model "autohub-auctions/internal/models"
	"autohub-auctions/internal/repository"
	query "autohub-auctions/internal/queryService"
	"autohub-auctions/internal/server"
	handler "autohub-auctions/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// testProfiles resolves display names for masked-name rendering in detail views.
type testProfiles map[string]string

func (p testProfiles) GetDisplayName(userID string) (string, error) {
	name, ok := p[userID]
	if !ok {
		return "", fmt.Errorf("no profile for user %s", userID)
	}
	return name, nil
}

// SetupTestRouter initializes the full router with an in-memory repository.
// The repository is returned so tests can seed and inspect state directly.
func SetupTestRouter() (*gin.Engine, *repository.MemoryRepo) {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	locks := keylock.New()

	auctionSvc := auction.NewAuctionService(repo, locks, auction.Config{})
	biddingSvc := bidding.NewBiddingService(repo, locks, bidding.NopNotifier{}, bidding.Policy{})
	querySvc := query.NewQueryService(repo, testProfiles{
		"seller1": "Yossi Cohen",
		"bidder1": "Dana Levi",
		"bidder2": "Avi Mizrahi",
	}, nil)

	auctionHandler := handler.NewAuctionHandler(auctionSvc, biddingSvc, querySvc)
	return server.SetupRouter(auctionHandler), repo
}

// SetupTestRouterWithAuctions initializes the router and seeds the repo with auctions.
func SetupTestRouterWithAuctions(t *testing.T, auctions ...model.Auction) (*gin.Engine, *repository.MemoryRepo) {
	t.Helper()

	router, repo := SetupTestRouter()
	for _, a := range auctions {
		if err := repo.CreateAuction(a); err != nil {
			t.Fatalf("failed to seed auction %s: %v", a.AuctionID, err)
		}
	}
	return router, repo
}

// activeAuction builds a currently-running auction for seeding.
func activeAuction(id, sellerID string, startingPrice float64) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:      id,
		SellerID:       sellerID,
		VehicleRef:     "vehicle-" + id,
		StartingPrice:  startingPrice,
		ScheduledStart: now.Add(-time.Hour),
		ScheduledEnd:   now.Add(24 * time.Hour),
		Status:         model.StatusActive,
		CreatedAt:      now.Add(-time.Hour),
	}
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}
