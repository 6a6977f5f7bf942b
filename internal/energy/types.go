package energy

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-energy/internal/device"
)

// CurrentPlanID is the ID of the single current plan.
const CurrentPlanID int64 = 1

// Plan holds the daily consumption limit. Any value is accepted for the
// limit, including zero and negative ones.
type Plan struct {
	ID            int64     `json:"id"`
	DailyLimitKWh float64   `json:"daily_limit_kwh"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Reading is the outcome of one overload check.
type Reading struct {
	UsageKWh      float64   `json:"usage_kwh"`
	DailyLimitKWh float64   `json:"daily_limit_kwh"`
	ActiveDevices int       `json:"active_devices"`
	Overloaded    bool      `json:"overloaded"`
	Message       string    `json:"message,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// DeviceLister enumerates devices. device.Repository satisfies it.
type DeviceLister interface {
	List(ctx context.Context) ([]device.Device, error)
}

// PlanRepository reads and writes the current energy plan.
type PlanRepository interface {
	// GetCurrentPlan returns the current plan.
	// Returns ErrPlanNotFound if none has been created.
	GetCurrentPlan(ctx context.Context) (*Plan, error)

	// UpdatePlan persists changes to the current plan.
	UpdatePlan(ctx context.Context, plan *Plan) error
}

// Notifier delivers alert messages.
type Notifier interface {
	SendAlert(ctx context.Context, message string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, message string) error

// SendAlert calls f(ctx, message).
func (f NotifierFunc) SendAlert(ctx context.Context, message string) error {
	return f(ctx, message)
}
