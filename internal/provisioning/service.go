// Package provisioning turns a confirmed payment into a provisioned hotspot
// voucher. All HTTP entry points funnel into the single Redeem pipeline here.
package provisioning

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/mikronet-dev/hotspot-backend/internal/models"
	"github.com/mikronet-dev/hotspot-backend/internal/store"
	"github.com/mikronet-dev/hotspot-backend/internal/voucher"
)

// KoboPerNaira converts catalog prices (naira) to the gateway's reported
// amounts (kobo).
const KoboPerNaira = 100

// retryMaxAttempts bounds how often a provision_retry job re-attempts the
// router write before the payment is surfaced for manual handling.
const retryMaxAttempts = 5

// Reason tags the failure outcome of a redemption. The empty reason is the
// generic rejection with no customer-visible detail.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUsedReference     Reason = "used_reference"
	ReasonTamperedAmount    Reason = "tampered_amount"
	ReasonIntegrationFailed Reason = "integration_failed"
)

// Outcome is the final result of one redemption attempt. Exactly one of
// Voucher and Failed is meaningful: a non-empty Voucher means success.
type Outcome struct {
	Voucher string
	Failed  bool
	Reason  Reason
}

func success(code string) Outcome { return Outcome{Voucher: code} }
func rejected(reason Reason) Outcome {
	return Outcome{Failed: true, Reason: reason}
}

// Verifier confirms a transaction reference with the payment gateway.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*models.VerificationResult, error)
}

// Catalog resolves plan identifiers against the plan table.
type Catalog interface {
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
}

// Ledger is the replay guard over the payments table.
type Ledger interface {
	IsProcessed(ctx context.Context, reference string) (bool, error)
	Reserve(ctx context.Context, reference, planID string, amount int64) error
	Finalize(ctx context.Context, reference, voucherCode string) error
	Release(ctx context.Context, reference string) error
}

// VoucherStore persists issued vouchers.
type VoucherStore interface {
	CreateVoucher(ctx context.Context, v *models.Voucher) error
}

// Provisioner commits a credential to the access controller.
type Provisioner interface {
	CreateHotspotUser(ctx context.Context, code string, plan models.Plan) error
}

// Notifier delivers the voucher to the customer. May be nil when messaging
// is not configured.
type Notifier interface {
	Send(ctx context.Context, recipient, code string) error
}

// RetryQueue persists a provisioning retry for a paid-but-unprovisioned
// payment. May be nil, in which case the reservation is released instead.
type RetryQueue interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

// Service is the payment-to-voucher orchestration pipeline.
type Service struct {
	verifier    Verifier
	catalog     Catalog
	ledger      Ledger
	vouchers    VoucherStore
	provisioner Provisioner
	notifier    Notifier
	retries     RetryQueue

	// generate is swappable in tests; defaults to voucher.NewCode.
	generate func() (string, error)
}

// NewService wires the pipeline's collaborators. notifier and retries may be
// nil.
func NewService(verifier Verifier, catalog Catalog, ledger Ledger, vouchers VoucherStore, provisioner Provisioner, notifier Notifier, retries RetryQueue) *Service {
	return &Service{
		verifier:    verifier,
		catalog:     catalog,
		ledger:      ledger,
		vouchers:    vouchers,
		provisioner: provisioner,
		notifier:    notifier,
		retries:     retries,
		generate:    voucher.NewCode,
	}
}

// Redeem runs the full pipeline for one transaction reference: gateway
// verification, replay check, plan and amount validation, credential
// generation, router provisioning, ledger finalization, and best-effort
// notification.
func (s *Service) Redeem(ctx context.Context, reference string) Outcome {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return rejected(ReasonNone)
	}

	result, err := s.verifier.Verify(ctx, reference)
	if err != nil {
		log.Printf("[redeem] gateway verification failed for %s: %v", reference, err)
		return rejected(ReasonNone)
	}
	if !result.Succeeded {
		log.Printf("[redeem] gateway reports unsuccessful payment for %s", reference)
		return rejected(ReasonNone)
	}

	// The caller may abandon the connection, but once a confirmed payment is
	// in hand the pipeline runs to completion: aborting between capture and
	// provisioning is the costliest failure mode.
	ctx = context.WithoutCancel(ctx)

	used, err := s.ledger.IsProcessed(ctx, reference)
	if err != nil {
		log.Printf("[redeem] ledger check failed for %s: %v", reference, err)
		return rejected(ReasonNone)
	}
	if used {
		log.Printf("[redeem] attempt to reuse already processed transaction: %s", reference)
		return rejected(ReasonUsedReference)
	}

	plan, err := s.catalog.GetPlan(ctx, result.PlanID)
	if err != nil {
		log.Printf("[redeem] invalid plan_id %q in payment metadata for %s: %v", result.PlanID, reference, err)
		return rejected(ReasonNone)
	}

	expected := plan.Price * KoboPerNaira
	if result.PaidAmount != expected {
		log.Printf("[redeem] SECURITY ALERT: tampered amount for transaction %s: expected %d, received %d",
			reference, expected, result.PaidAmount)
		return rejected(ReasonTamperedAmount)
	}

	// Reserve is the atomic gate: of two concurrent requests with the same
	// reference, exactly one insert wins.
	if err := s.ledger.Reserve(ctx, reference, plan.ID, result.PaidAmount); err != nil {
		if errors.Is(err, store.ErrAlreadyProcessed) {
			log.Printf("[redeem] lost reservation race for %s", reference)
			return rejected(ReasonUsedReference)
		}
		log.Printf("[redeem] ledger reservation failed for %s: %v", reference, err)
		return rejected(ReasonNone)
	}

	code, err := s.generate()
	if err != nil {
		log.Printf("[redeem] voucher generation failed for %s: %v", reference, err)
		s.release(ctx, reference)
		return rejected(ReasonNone)
	}

	if err := s.provisioner.CreateHotspotUser(ctx, code, *plan); err != nil {
		log.Printf("[redeem] router provisioning failed for %s: %v", reference, err)
		s.deferToRetryQueue(ctx, reference, plan.ID, code, result.CustomerContact, err)
		return rejected(ReasonIntegrationFailed)
	}

	s.commit(ctx, reference, plan.ID, code)
	s.notify(ctx, result.CustomerContact, code)

	return success(code)
}

// commit finalizes the ledger and records the voucher. The router already
// accepted the user, so bookkeeping failures are logged but do not demote
// the outcome: the customer has working access.
func (s *Service) commit(ctx context.Context, reference, planID, code string) {
	if err := s.ledger.Finalize(ctx, reference, code); err != nil {
		log.Printf("[redeem] ledger finalize failed for %s: %v", reference, err)
	}
	if err := s.vouchers.CreateVoucher(ctx, &models.Voucher{
		Code:             code,
		PlanID:           planID,
		PaymentReference: reference,
	}); err != nil {
		log.Printf("[redeem] voucher persist failed for %s: %v", reference, err)
	}
}

// deferToRetryQueue hands an in-flight reservation to the background retry
// queue after a failed router write. Without a queue the reservation is
// released so a legitimate retry with the same reference can proceed.
func (s *Service) deferToRetryQueue(ctx context.Context, reference, planID, code, contact string, cause error) {
	if s.retries == nil {
		s.release(ctx, reference)
		log.Printf("[redeem] ATTENTION: paid but unprovisioned payment %s has no retry queue; reservation released", reference)
		return
	}

	job := &models.Job{
		JobType: models.JobTypeProvisionRetry,
		Payload: models.JSONB{
			"reference": reference,
			"plan_id":   planID,
			"code":      code,
			"contact":   contact,
		},
		MaxAttempts: retryMaxAttempts,
	}
	if err := s.retries.Enqueue(ctx, job); err != nil {
		s.release(ctx, reference)
		log.Printf("[redeem] ATTENTION: failed to enqueue provisioning retry for %s: %v (cause: %v); reservation released",
			reference, err, cause)
		return
	}

	log.Printf("[redeem] enqueued provisioning retry job %d for %s", job.ID, reference)
}

func (s *Service) release(ctx context.Context, reference string) {
	if err := s.ledger.Release(ctx, reference); err != nil {
		log.Printf("[redeem] ledger release failed for %s: %v", reference, err)
	}
}

// notify delivers the voucher over the messaging channel. A nil notifier or
// empty contact is a no-op; delivery failures never affect the outcome.
func (s *Service) notify(ctx context.Context, recipient, code string) {
	if s.notifier == nil {
		log.Printf("[notify] messaging not configured, skipping voucher delivery")
		return
	}
	if recipient == "" {
		log.Printf("[notify] no customer contact in payment metadata, skipping voucher delivery")
		return
	}

	if err := s.notifier.Send(ctx, recipient, code); err != nil {
		log.Printf("[notify] voucher delivery failed: %v", err)
	}
}
