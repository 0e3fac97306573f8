package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mikronet-dev/hotspot-backend/internal/models"
)

func TestEnqueueValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &JobStore{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	job := &models.Job{JobType: "", MaxAttempts: 5}
	if err := s.Enqueue(context.Background(), job); err == nil {
		t.Fatal("expected error for job without type")
	}
}

func TestEnqueueSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &JobStore{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO jobs`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))

	job := &models.Job{
		JobType:     models.JobTypeProvisionRetry,
		Payload:     models.JSONB{"reference": "ref-1"},
		MaxAttempts: 5,
	}
	if err := s.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if job.ID != 7 {
		t.Fatalf("expected assigned id 7, got %d", job.ID)
	}
}

func TestClaimNextJobEmptyQueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &JobStore{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	mock.ExpectQuery(`UPDATE jobs`).
		WithArgs("worker-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	job, err := s.ClaimNextJob(context.Background(), "worker-1")
	if err != nil {
		t.Fatalf("ClaimNextJob returned error: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job for empty queue, got %+v", job)
	}
}

func TestClaimNextJobReturnsClaimed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &JobStore{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	now := time.Now()
	workerID := "worker-1"
	rows := sqlmock.NewRows([]string{
		"id", "job_type", "payload", "status", "attempts", "max_attempts",
		"created_at", "updated_at", "scheduled_for", "last_error", "retry_after",
		"processed_at", "completed_at", "worker_id",
	}).AddRow(
		3, models.JobTypeProvisionRetry, []byte(`{"reference":"ref-1","code":"NET-ABCD2345"}`), "processing", 1, 5,
		now, now, nil, nil, nil, now, nil, workerID,
	)

	mock.ExpectQuery(`UPDATE jobs`).WithArgs(workerID).WillReturnRows(rows)

	job, err := s.ClaimNextJob(context.Background(), workerID)
	if err != nil {
		t.Fatalf("ClaimNextJob returned error: %v", err)
	}
	if job == nil {
		t.Fatal("expected a claimed job")
	}
	if job.Payload.GetString("reference") != "ref-1" {
		t.Fatalf("unexpected payload: %+v", job.Payload)
	}
	if job.Attempts != 1 {
		t.Fatalf("expected attempts 1, got %d", job.Attempts)
	}
}

func TestScheduleRetry(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &JobStore{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	retryAt := time.Now().Add(time.Minute)
	mock.ExpectExec(`UPDATE jobs`).
		WithArgs(int64(3), "router unreachable", retryAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.ScheduleRetry(context.Background(), 3, "router unreachable", retryAt); err != nil {
		t.Fatalf("ScheduleRetry returned error: %v", err)
	}
}

func TestListFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &JobStore{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	rows := sqlmock.NewRows([]string{
		"id", "job_type", "payload", "status", "attempts", "max_attempts",
		"created_at", "updated_at", "scheduled_for", "last_error", "retry_after",
		"processed_at", "completed_at", "worker_id",
	}).AddRow(
		int64(7), models.JobTypeProvisionRetry, []byte(`{"reference":"ref-9"}`), models.JobStatusFailed, 5, 5,
		time.Now(), time.Now(), nil, "router unreachable", nil,
		nil, nil, "worker-1",
	)

	mock.ExpectQuery(`FROM jobs\s+WHERE status = 'failed'`).
		WithArgs(models.JobTypeProvisionRetry, 10).
		WillReturnRows(rows)

	failed, err := s.ListFailed(context.Background(), models.JobTypeProvisionRetry, 10)
	if err != nil {
		t.Fatalf("ListFailed returned error: %v", err)
	}
	if len(failed) != 1 || failed[0].Payload.GetString("reference") != "ref-9" {
		t.Fatalf("unexpected failed jobs: %+v", failed)
	}
}

func TestGetStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &JobStore{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	rows := sqlmock.NewRows([]string{"pending", "processing", "completed", "failed", "cancelled", "total"}).
		AddRow(2, 1, 10, 3, 0, 16)
	mock.ExpectQuery(`FROM jobs`).WillReturnRows(rows)

	stats, err := s.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats returned error: %v", err)
	}
	if stats.Pending != 2 || stats.Failed != 3 || stats.Total != 16 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
