package worker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mikronet-dev/hotspot-backend/internal/models"
	"github.com/mikronet-dev/hotspot-backend/internal/provisioning"
	"github.com/mikronet-dev/hotspot-backend/internal/routeros"
	"github.com/mikronet-dev/hotspot-backend/internal/store"
	"github.com/mikronet-dev/hotspot-backend/internal/voucher"
)

// RegisterProvisioningJobs registers the provision_retry handler. It re-runs
// the router write for payments that were verified and reserved but never
// provisioned, then finishes the same bookkeeping the live pipeline does.
func RegisterProvisioningJobs(w *Worker, ledger *store.LedgerStore, st *store.Store, jobs *store.JobStore, router provisioning.Provisioner, notifier provisioning.Notifier) {
	w.RegisterHandler(models.JobTypeProvisionRetry, provisionRetryHandler(ledger, st, jobs, router, notifier))

	log.Println("[worker] Registered provisioning job handler: provision_retry")
}

func provisionRetryHandler(ledger *store.LedgerStore, st *store.Store, jobs *store.JobStore, router provisioning.Provisioner, notifier provisioning.Notifier) Handler {
	return func(ctx context.Context, job *models.Job) error {
		reference := job.Payload.GetString("reference")
		planID := job.Payload.GetString("plan_id")
		code := job.Payload.GetString("code")
		contact := job.Payload.GetString("contact")

		if reference == "" || planID == "" || code == "" {
			return fmt.Errorf("malformed provision_retry payload: %v", job.Payload)
		}

		plan, err := st.GetPlan(ctx, planID)
		if err != nil {
			return fmt.Errorf("resolve plan %s: %w", planID, err)
		}

		err = router.CreateHotspotUser(ctx, code, *plan)
		if errors.Is(err, routeros.ErrCommandRejected) {
			// A rejected command usually means the name already exists on the
			// router. Carry a fresh code into the next attempt.
			if fresh, genErr := voucher.NewCode(); genErr == nil {
				job.Payload["code"] = fresh
				if upErr := jobs.UpdatePayload(ctx, job.ID, job.Payload); upErr != nil {
					log.Printf("[retry] failed to store fresh code for job %d: %v", job.ID, upErr)
				}
			}
		}
		if err != nil {
			if job.Attempts >= job.MaxAttempts {
				// Final attempt. Give the reference back so the customer can
				// be re-served manually; the failed job row keeps the trail.
				if relErr := ledger.Release(ctx, reference); relErr != nil {
					log.Printf("[retry] ATTENTION: release after exhausted retries failed for %s: %v", reference, relErr)
				} else {
					log.Printf("[retry] ATTENTION: payment %s exhausted provisioning retries; reservation released for manual handling", reference)
				}
			}
			return fmt.Errorf("provision %s: %w", reference, err)
		}

		if err := ledger.Finalize(ctx, reference, code); err != nil {
			// The router user exists; re-running the job would duplicate it.
			log.Printf("[retry] ledger finalize failed for %s: %v", reference, err)
			return nil
		}
		if err := st.CreateVoucher(ctx, &models.Voucher{
			Code:             code,
			PlanID:           plan.ID,
			PaymentReference: reference,
		}); err != nil {
			log.Printf("[retry] voucher persist failed for %s: %v", reference, err)
		}

		if notifier != nil && contact != "" {
			if err := notifier.Send(ctx, contact, code); err != nil {
				log.Printf("[retry] voucher delivery failed for %s: %v", reference, err)
			}
		}

		log.Printf("[retry] recovered payment %s after %d attempt(s)", reference, job.Attempts)
		return nil
	}
}
