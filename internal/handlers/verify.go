package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mikronet-dev/hotspot-backend/internal/provisioning"
)

// PaymentRedeemer runs the payment-to-voucher pipeline for one reference.
type PaymentRedeemer interface {
	Redeem(ctx context.Context, reference string) provisioning.Outcome
}

// VerifyPayment creates the customer-facing callback handler. Every outcome
// is a redirect to the frontend: no error detail crosses this boundary beyond
// the reason tag on the error page.
func VerifyPayment(svc PaymentRedeemer, frontendURL string) http.HandlerFunc {
	base := strings.TrimRight(frontendURL, "/")

	return func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(r.URL.Query().Get("ref"))
		if ref == "" {
			http.Redirect(w, r, base+"/error.html", http.StatusSeeOther)
			return
		}

		outcome := svc.Redeem(r.Context(), ref)
		if !outcome.Failed {
			http.Redirect(w, r, base+"/success.html?voucher="+url.QueryEscape(outcome.Voucher), http.StatusSeeOther)
			return
		}

		target := base + "/error.html"
		if outcome.Reason != provisioning.ReasonNone {
			target += "?reason=" + url.QueryEscape(string(outcome.Reason))
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}
