package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikronet-dev/hotspot-backend/internal/config"
	"github.com/mikronet-dev/hotspot-backend/internal/models"
	"github.com/mikronet-dev/hotspot-backend/internal/provisioning"
)

type stubPlanLister struct{}

func (s *stubPlanLister) ListPlans(ctx context.Context) ([]models.Plan, error) {
	return []models.Plan{{ID: "daily", Name: "Daily Plan", Duration: "24h", Price: 500}}, nil
}

type stubPipeline struct{}

func (s *stubPipeline) Redeem(ctx context.Context, reference string) provisioning.Outcome {
	return provisioning.Outcome{Voucher: "NET-ABCD2345"}
}

func testServer() *Server {
	cfg := config.Config{ServerAddress: ":0", FrontendURL: "https://portal.example.com"}
	return New(cfg, nil, &stubPlanLister{}, &stubPipeline{}, nil)
}

func TestHealthRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	testServer().Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}

func TestPlansRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/plans", nil)
	rr := httptest.NewRecorder()

	testServer().Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: %s", ct)
	}
}

func TestVerifyPaymentRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/verify-payment?ref=ref-1", nil)
	rr := httptest.NewRecorder()

	testServer().Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect got %d", rr.Code)
	}
	want := "https://portal.example.com/success.html?voucher=NET-ABCD2345"
	if got := rr.Header().Get("Location"); got != want {
		t.Fatalf("unexpected redirect target: %s", got)
	}
}
