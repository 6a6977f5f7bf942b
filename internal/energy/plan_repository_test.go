package energy

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupPlanDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE energy_plans (
			id              INTEGER PRIMARY KEY CHECK (id = 1),
			daily_limit_kwh REAL    NOT NULL,
			updated_at      TEXT    NOT NULL
		)`)
	if err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	return db
}

func TestSQLitePlanRepository_EnsurePlan(t *testing.T) {
	repo := NewSQLitePlanRepository(setupPlanDB(t))
	ctx := context.Background()

	if _, err := repo.GetCurrentPlan(ctx); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("GetCurrentPlan() on empty table error = %v, want ErrPlanNotFound", err)
	}

	plan, err := repo.EnsurePlan(ctx, 10)
	if err != nil {
		t.Fatalf("EnsurePlan() error = %v", err)
	}
	if plan.ID != CurrentPlanID || plan.DailyLimitKWh != 10 {
		t.Errorf("EnsurePlan() = %+v, want id 1 limit 10", plan)
	}

	// A second call keeps the existing limit.
	plan, err = repo.EnsurePlan(ctx, 99)
	if err != nil {
		t.Fatalf("second EnsurePlan() error = %v", err)
	}
	if plan.DailyLimitKWh != 10 {
		t.Errorf("EnsurePlan() overwrote limit: %v", plan.DailyLimitKWh)
	}
}

func TestSQLitePlanRepository_UpdatePlan(t *testing.T) {
	repo := NewSQLitePlanRepository(setupPlanDB(t))
	ctx := context.Background()

	plan, err := repo.EnsurePlan(ctx, 10)
	if err != nil {
		t.Fatalf("EnsurePlan() error = %v", err)
	}

	later := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return later }

	plan.DailyLimitKWh = -2.5
	if err := repo.UpdatePlan(ctx, plan); err != nil {
		t.Fatalf("UpdatePlan() error = %v", err)
	}

	got, err := repo.GetCurrentPlan(ctx)
	if err != nil {
		t.Fatalf("GetCurrentPlan() error = %v", err)
	}
	if got.DailyLimitKWh != -2.5 {
		t.Errorf("DailyLimitKWh = %v, want -2.5", got.DailyLimitKWh)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}
}

func TestSQLitePlanRepository_UpdateMissing(t *testing.T) {
	repo := NewSQLitePlanRepository(setupPlanDB(t))

	err := repo.UpdatePlan(context.Background(), &Plan{ID: CurrentPlanID, DailyLimitKWh: 1})
	if !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("UpdatePlan() error = %v, want ErrPlanNotFound", err)
	}
}

func TestMemoryPlanRepository(t *testing.T) {
	repo := NewMemoryPlanRepository(8)
	ctx := context.Background()

	plan, err := repo.GetCurrentPlan(ctx)
	if err != nil {
		t.Fatalf("GetCurrentPlan() error = %v", err)
	}
	plan.DailyLimitKWh = 3

	stored, _ := repo.GetCurrentPlan(ctx)
	if stored.DailyLimitKWh != 8 {
		t.Error("mutating a returned plan must not change the store before UpdatePlan")
	}

	if err := repo.UpdatePlan(ctx, plan); err != nil {
		t.Fatalf("UpdatePlan() error = %v", err)
	}
	stored, _ = repo.GetCurrentPlan(ctx)
	if stored.DailyLimitKWh != 3 {
		t.Errorf("DailyLimitKWh = %v, want 3", stored.DailyLimitKWh)
	}

	if err := repo.UpdatePlan(ctx, &Plan{ID: 2}); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("UpdatePlan(other id) error = %v, want ErrPlanNotFound", err)
	}
}

func TestMonitor_WithStores(t *testing.T) {
	devices := []struct {
		watts float64
		on    bool
	}{{1000, true}, {1500, true}, {2000, true}, {700, false}}

	deviceRepo := newDeviceRepo(t)
	for _, d := range devices {
		createDevice(t, deviceRepo, d.watts, d.on)
	}
	plans := NewMemoryPlanRepository(4)

	var alerts []string
	notifier := NotifierFunc(func(_ context.Context, msg string) error {
		alerts = append(alerts, msg)
		return nil
	})

	m := NewMonitor(deviceRepo, plans, notifier)
	ctx := context.Background()

	reading, err := m.CheckForOverload(ctx)
	if err != nil {
		t.Fatalf("CheckForOverload() error = %v", err)
	}
	if !reading.Overloaded || len(alerts) != 1 || alerts[0] != "Overload detected: 4,5 kWh used!" {
		t.Fatalf("reading = %+v, alerts = %v", reading, alerts)
	}

	if err := m.UpdateEnergyLimit(ctx, 5); err != nil {
		t.Fatalf("UpdateEnergyLimit() error = %v", err)
	}
	if reading, err = m.CheckForOverload(ctx); err != nil || reading.Overloaded {
		t.Errorf("after raising limit: reading = %+v, err = %v", reading, err)
	}
	if len(alerts) != 1 {
		t.Errorf("alerts = %d, want 1", len(alerts))
	}
}
