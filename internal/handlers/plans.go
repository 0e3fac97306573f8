package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/mikronet-dev/hotspot-backend/internal/models"
)

// PlanLister defines the behaviour required from the storage client backing
// the plans handler.
type PlanLister interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
}

// Plans creates an HTTP handler that returns the plan catalog as a JSON array.
func Plans(client PlanLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := client.ListPlans(r.Context())
		if err != nil {
			log.Printf("[plans] failed to list plans: %v", err)
			http.Error(w, "failed to load plans", http.StatusInternalServerError)
			return
		}

		if plans == nil {
			plans = []models.Plan{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(plans); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}
