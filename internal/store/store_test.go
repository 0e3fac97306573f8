package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNewStoreValidation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error when db is nil")
	}
}

func TestListPlansSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &Store{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	rows := sqlmock.NewRows([]string{"id", "name", "description", "icon", "duration", "price", "profile_name", "limit_uptime"}).
		AddRow("daily", "Daily Plan", "24 hours of access", "sun", "24h", 500, "24-hour-profile", "24h").
		AddRow("weekly", "Weekly Plan", "7 days of access", "calendar", "7d", 2500, "7-day-profile", "7d")

	mock.ExpectQuery(`SELECT id, name, description, icon, duration, price, profile_name, limit_uptime\s+FROM plans`).
		WillReturnRows(rows)

	plans, err := s.ListPlans(context.Background())
	if err != nil {
		t.Fatalf("ListPlans returned error: %v", err)
	}

	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	if plans[0].ID != "daily" || plans[0].Price != 500 {
		t.Fatalf("unexpected first plan: %+v", plans[0])
	}
	if plans[1].ProfileName != "7-day-profile" {
		t.Fatalf("unexpected profile name: %s", plans[1].ProfileName)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListPlansQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &Store{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	mock.ExpectQuery(`SELECT id, name`).WillReturnError(errors.New("boom"))

	if _, err := s.ListPlans(context.Background()); err == nil {
		t.Fatal("expected error when query fails")
	}
}

func TestGetPlanUnknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &Store{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	mock.ExpectQuery(`SELECT id, name, description, icon, duration, price, profile_name, limit_uptime\s+FROM plans\s+WHERE id = \$1`).
		WithArgs("bogus").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := s.GetPlan(context.Background(), "bogus"); !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}

func TestGetPlanSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	s := &Store{db: db}
	t.Cleanup(func() {
		db.Close()
	})

	rows := sqlmock.NewRows([]string{"id", "name", "description", "icon", "duration", "price", "profile_name", "limit_uptime"}).
		AddRow("daily", "Daily Plan", "", "", "24h", 500, "24-hour-profile", "24h")

	mock.ExpectQuery(`FROM plans\s+WHERE id = \$1`).WithArgs("daily").WillReturnRows(rows)

	plan, err := s.GetPlan(context.Background(), "daily")
	if err != nil {
		t.Fatalf("GetPlan returned error: %v", err)
	}
	if plan.LimitUptime != "24h" {
		t.Fatalf("unexpected limit uptime: %s", plan.LimitUptime)
	}
}
