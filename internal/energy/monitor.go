package energy

import (
	"context"
	"fmt"
	"time"
)

const wattsPerKilowatt = 1000

// Logger defines the logging interface used by the energy package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Monitor computes usage, checks it against the current plan and updates
// the plan limit. It holds no state between calls besides its settings.
type Monitor struct {
	devices   DeviceLister
	plans     PlanRepository
	notifier  Notifier
	separator string
	logger    Logger
	now       func() time.Time
}

// NewMonitor creates a monitor over the given collaborators. Alerts use a
// comma as decimal separator until SetDecimalSeparator says otherwise.
func NewMonitor(devices DeviceLister, plans PlanRepository, notifier Notifier) *Monitor {
	return &Monitor{
		devices:   devices,
		plans:     plans,
		notifier:  notifier,
		separator: SeparatorComma,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// SetDecimalSeparator selects the separator used in alert messages.
func (m *Monitor) SetDecimalSeparator(sep string) error {
	if err := ValidateSeparator(sep); err != nil {
		return err
	}
	m.separator = sep
	return nil
}

// DecimalSeparator returns the separator used in alert messages.
func (m *Monitor) DecimalSeparator() string {
	return m.separator
}

// CurrentUsageKWh returns the summed wattage of devices that are on,
// divided by 1000. Devices that are off are ignored.
func (m *Monitor) CurrentUsageKWh(ctx context.Context) (float64, error) {
	usage, _, err := m.usage(ctx)
	return usage, err
}

func (m *Monitor) usage(ctx context.Context) (kwh float64, active int, err error) {
	devices, err := m.devices.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("listing devices: %w", err)
	}

	var watts float64
	for _, d := range devices {
		if !d.IsOn {
			continue
		}
		watts += d.PowerWatts
		active++
	}
	return watts / wattsPerKilowatt, active, nil
}

// CurrentPlan returns the current plan.
func (m *Monitor) CurrentPlan(ctx context.Context) (*Plan, error) {
	plan, err := m.plans.GetCurrentPlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading current plan: %w", err)
	}
	return plan, nil
}

// CheckForOverload compares current usage with the plan limit. When usage
// is strictly greater, exactly one alert is sent. The Reading is returned
// even when alert delivery fails.
func (m *Monitor) CheckForOverload(ctx context.Context) (Reading, error) {
	usage, active, err := m.usage(ctx)
	if err != nil {
		return Reading{}, err
	}

	plan, err := m.CurrentPlan(ctx)
	if err != nil {
		return Reading{}, err
	}

	reading := Reading{
		UsageKWh:      usage,
		DailyLimitKWh: plan.DailyLimitKWh,
		ActiveDevices: active,
		CheckedAt:     m.now().UTC(),
	}

	if !(usage > plan.DailyLimitKWh) {
		m.logger.Debug("energy usage within limit", "usage_kwh", usage, "limit_kwh", plan.DailyLimitKWh)
		return reading, nil
	}

	reading.Overloaded = true
	reading.Message = OverloadMessage(usage, m.separator)
	m.logger.Warn("energy overload detected",
		"usage_kwh", usage,
		"limit_kwh", plan.DailyLimitKWh,
		"active_devices", active,
	)

	if err := m.notifier.SendAlert(ctx, reading.Message); err != nil {
		return reading, fmt.Errorf("sending overload alert: %w", err)
	}
	return reading, nil
}

// UpdateEnergyLimit sets the daily limit of the current plan and persists
// it with a single write. The limit is stored as given.
func (m *Monitor) UpdateEnergyLimit(ctx context.Context, limitKWh float64) error {
	plan, err := m.CurrentPlan(ctx)
	if err != nil {
		return err
	}

	previous := plan.DailyLimitKWh
	plan.DailyLimitKWh = limitKWh
	if err := m.plans.UpdatePlan(ctx, plan); err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}

	m.logger.Info("energy limit updated", "previous_kwh", previous, "limit_kwh", limitKWh)
	return nil
}
