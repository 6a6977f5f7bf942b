package energy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SQLitePlanRepository stores the current plan as the single row of the
// energy_plans table.
type SQLitePlanRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLitePlanRepository creates a new SQLite-backed plan repository.
func NewSQLitePlanRepository(db *sql.DB) *SQLitePlanRepository {
	return &SQLitePlanRepository{db: db, now: time.Now}
}

// GetCurrentPlan returns the current plan.
func (r *SQLitePlanRepository) GetCurrentPlan(ctx context.Context) (*Plan, error) {
	var plan Plan
	var updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, daily_limit_kwh, updated_at FROM energy_plans WHERE id = ?`,
		CurrentPlanID,
	).Scan(&plan.ID, &plan.DailyLimitKWh, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("querying current plan: %w", err)
	}

	if plan.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing plan updated_at %q: %w", updatedAt, err)
	}
	return &plan, nil
}

// UpdatePlan writes plan's limit and refreshes plan.UpdatedAt.
func (r *SQLitePlanRepository) UpdatePlan(ctx context.Context, plan *Plan) error {
	now := r.now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE energy_plans SET daily_limit_kwh = ?, updated_at = ? WHERE id = ?`,
		plan.DailyLimitKWh, now.Format(time.RFC3339Nano), plan.ID,
	)
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPlanNotFound
	}

	plan.UpdatedAt = now
	return nil
}

// EnsurePlan creates the current plan with defaultLimitKWh when none exists
// and returns the current plan. An existing plan is left untouched.
func (r *SQLitePlanRepository) EnsurePlan(ctx context.Context, defaultLimitKWh float64) (*Plan, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO energy_plans (id, daily_limit_kwh, updated_at) VALUES (?, ?, ?)`,
		CurrentPlanID, defaultLimitKWh, r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("seeding plan: %w", err)
	}
	return r.GetCurrentPlan(ctx)
}

// MemoryPlanRepository keeps the current plan in memory.
type MemoryPlanRepository struct {
	mu   sync.Mutex
	plan *Plan
}

// NewMemoryPlanRepository creates a repository holding one plan with the
// given limit.
func NewMemoryPlanRepository(limitKWh float64) *MemoryPlanRepository {
	return &MemoryPlanRepository{plan: &Plan{
		ID:            CurrentPlanID,
		DailyLimitKWh: limitKWh,
		UpdatedAt:     time.Now().UTC(),
	}}
}

// GetCurrentPlan returns a copy of the current plan.
func (r *MemoryPlanRepository) GetCurrentPlan(_ context.Context) (*Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.plan == nil {
		return nil, ErrPlanNotFound
	}
	plan := *r.plan
	return &plan, nil
}

// UpdatePlan stores a copy of plan.
func (r *MemoryPlanRepository) UpdatePlan(_ context.Context, plan *Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.plan == nil || plan.ID != r.plan.ID {
		return ErrPlanNotFound
	}
	plan.UpdatedAt = time.Now().UTC()
	stored := *plan
	r.plan = &stored
	return nil
}
