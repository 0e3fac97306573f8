package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikronet-dev/hotspot-backend/internal/provisioning"
)

type mockRedeemer struct {
	lastRef string
	outcome provisioning.Outcome
}

func (m *mockRedeemer) Redeem(ctx context.Context, reference string) provisioning.Outcome {
	m.lastRef = reference
	return m.outcome
}

const frontend = "https://portal.example.com"

func redirectTarget(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got status %d", rr.Code)
	}
	return rr.Header().Get("Location")
}

func TestVerifyPaymentSuccessRedirect(t *testing.T) {
	svc := &mockRedeemer{outcome: provisioning.Outcome{Voucher: "NET-ABCD2345"}}

	req := httptest.NewRequest(http.MethodGet, "/verify-payment?ref=ref-1", nil)
	rr := httptest.NewRecorder()
	VerifyPayment(svc, frontend).ServeHTTP(rr, req)

	want := frontend + "/success.html?voucher=NET-ABCD2345"
	if got := redirectTarget(t, rr); got != want {
		t.Fatalf("unexpected redirect: %s", got)
	}
	if svc.lastRef != "ref-1" {
		t.Fatalf("unexpected reference passed to pipeline: %s", svc.lastRef)
	}
}

func TestVerifyPaymentMissingRef(t *testing.T) {
	svc := &mockRedeemer{}

	req := httptest.NewRequest(http.MethodGet, "/verify-payment", nil)
	rr := httptest.NewRecorder()
	VerifyPayment(svc, frontend).ServeHTTP(rr, req)

	if got := redirectTarget(t, rr); got != frontend+"/error.html" {
		t.Fatalf("unexpected redirect: %s", got)
	}
	if svc.lastRef != "" {
		t.Fatal("pipeline must not be called without a reference")
	}
}

func TestVerifyPaymentReasonTags(t *testing.T) {
	cases := []struct {
		reason provisioning.Reason
		want   string
	}{
		{provisioning.ReasonUsedReference, frontend + "/error.html?reason=used_reference"},
		{provisioning.ReasonTamperedAmount, frontend + "/error.html?reason=tampered_amount"},
		{provisioning.ReasonIntegrationFailed, frontend + "/error.html?reason=integration_failed"},
		{provisioning.ReasonNone, frontend + "/error.html"},
	}

	for _, tc := range cases {
		svc := &mockRedeemer{outcome: provisioning.Outcome{Failed: true, Reason: tc.reason}}

		req := httptest.NewRequest(http.MethodGet, "/verify-payment?ref=ref-1", nil)
		rr := httptest.NewRecorder()
		VerifyPayment(svc, frontend).ServeHTTP(rr, req)

		if got := redirectTarget(t, rr); got != tc.want {
			t.Fatalf("reason %q: unexpected redirect %s", tc.reason, got)
		}
	}
}

func TestVerifyPaymentTrimsTrailingSlash(t *testing.T) {
	svc := &mockRedeemer{outcome: provisioning.Outcome{Voucher: "NET-ABCD2345"}}

	req := httptest.NewRequest(http.MethodGet, "/verify-payment?ref=ref-1", nil)
	rr := httptest.NewRecorder()
	VerifyPayment(svc, frontend+"/").ServeHTTP(rr, req)

	want := frontend + "/success.html?voucher=NET-ABCD2345"
	if got := redirectTarget(t, rr); got != want {
		t.Fatalf("unexpected redirect: %s", got)
	}
}
