package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/choria-io/fisk"
	"github.com/dustin/go-humanize"

	"github.com/nerrad567/gray-logic-energy/internal/device"
	"github.com/nerrad567/gray-logic-energy/internal/energy"
)

func (c *ctl) deviceAddAction(_ *fisk.ParseContext) error {
	return c.withStore(func(ctx context.Context, s *store) error {
		d := &device.Device{Name: c.name, PowerWatts: c.watts, IsOn: c.startOn}
		if err := s.devices.Create(ctx, d); err != nil {
			return err
		}
		if c.jsonFormat {
			return c.printJSON(d)
		}
		fmt.Fprintf(c.out, "Added device %d: %s (%s)\n", d.ID, d.Name, watts(d.PowerWatts))
		return nil
	})
}

func (c *ctl) deviceRemoveAction(_ *fisk.ParseContext) error {
	return c.withStore(func(ctx context.Context, s *store) error {
		if err := s.devices.Delete(ctx, c.deviceID); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Removed device %d\n", c.deviceID)
		return nil
	})
}

func (c *ctl) deviceListAction(_ *fisk.ParseContext) error {
	return c.withStore(func(ctx context.Context, s *store) error {
		devices, err := s.registry.ListDevices(ctx)
		if err != nil {
			return err
		}
		return c.printDevices(devices)
	})
}

func (c *ctl) activeAction(_ *fisk.ParseContext) error {
	return c.withStore(func(ctx context.Context, s *store) error {
		devices, err := s.registry.GetActiveDevices(ctx)
		if err != nil {
			return err
		}
		return c.printDevices(devices)
	})
}

func (c *ctl) toggleAction(_ *fisk.ParseContext) error {
	return c.withStore(func(ctx context.Context, s *store) error {
		on, err := s.registry.ToggleDevice(ctx, c.deviceID, c.state == "on")
		if err != nil {
			return err
		}
		if c.jsonFormat {
			return c.printJSON(map[string]any{"id": c.deviceID, "is_on": on})
		}
		fmt.Fprintf(c.out, "Device %d is now %s\n", c.deviceID, onOff(on))
		return nil
	})
}

func (c *ctl) usageAction(_ *fisk.ParseContext) error {
	return c.withStore(func(ctx context.Context, s *store) error {
		m, err := c.monitor(s, c.printAlert())
		if err != nil {
			return err
		}
		usage, err := m.CurrentUsageKWh(ctx)
		if err != nil {
			return err
		}
		if c.jsonFormat {
			return c.printJSON(map[string]any{"usage_kwh": usage})
		}
		fmt.Fprintf(c.out, "Current usage: %s kWh\n", energy.FormatKWh(usage, c.separator))
		return nil
	})
}

func (c *ctl) checkAction(_ *fisk.ParseContext) error {
	return c.withStore(func(ctx context.Context, s *store) error {
		m, err := c.monitor(s, c.alertNotifier())
		if err != nil {
			return err
		}
		reading, err := m.CheckForOverload(ctx)
		if err != nil {
			return err
		}
		if c.jsonFormat {
			return c.printJSON(reading)
		}

		fmt.Fprintf(c.out, "        Usage: %s kWh\n", energy.FormatKWh(reading.UsageKWh, c.separator))
		fmt.Fprintf(c.out, "  Daily Limit: %s kWh\n", energy.FormatKWh(reading.DailyLimitKWh, c.separator))
		fmt.Fprintf(c.out, "       Active: %d devices\n", reading.ActiveDevices)
		fmt.Fprintf(c.out, "   Overloaded: %t\n", reading.Overloaded)
		return nil
	})
}

func (c *ctl) limitAction(_ *fisk.ParseContext) error {
	return c.withStore(func(ctx context.Context, s *store) error {
		m, err := c.monitor(s, c.printAlert())
		if err != nil {
			return err
		}

		if c.limitArg != "" {
			limit, err := parseKWh(c.limitArg)
			if err != nil {
				return err
			}
			if err := m.UpdateEnergyLimit(ctx, limit); err != nil {
				return err
			}
		}

		plan, err := m.CurrentPlan(ctx)
		if err != nil {
			return err
		}
		if c.jsonFormat {
			return c.printJSON(plan)
		}
		fmt.Fprintf(c.out, "Daily limit: %s kWh (updated %s)\n",
			energy.FormatKWh(plan.DailyLimitKWh, c.separator), humanize.Time(plan.UpdatedAt))
		return nil
	})
}

// dbStatusAction and dbRollbackAction skip the automatic migrate so the
// reported state is the one on disk.
func (c *ctl) dbStatusAction(_ *fisk.ParseContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	db, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Database: %s\n\n", db.Path())
	for _, m := range applied {
		fmt.Fprintf(c.out, "  applied  %s  %s\n", m.Version, humanize.Time(m.AppliedAt))
	}
	for _, m := range pending {
		fmt.Fprintf(c.out, "  pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}

func (c *ctl) dbRollbackAction(_ *fisk.ParseContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	db, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.MigrateDown(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Rolled back the most recent migration")
	return nil
}

func (c *ctl) printDevices(devices []device.Device) error {
	if c.jsonFormat {
		return c.printJSON(devices)
	}
	if len(devices) == 0 {
		fmt.Fprintln(c.out, "No devices")
		return nil
	}

	fmt.Fprintf(c.out, "%4s  %-24s  %-3s  %10s  %s\n", "ID", "Name", "On", "Power", "Updated")
	for _, d := range devices {
		fmt.Fprintf(c.out, "%4d  %-24s  %-3s  %10s  %s\n",
			d.ID, d.Name, onOff(d.IsOn), watts(d.PowerWatts), humanize.Time(d.UpdatedAt))
	}
	fmt.Fprintf(c.out, "\n%s devices\n", humanize.Comma(int64(len(devices))))
	return nil
}

func (c *ctl) printJSON(v any) error {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(j))
	return nil
}

func watts(w float64) string {
	return humanize.SIWithDigits(w, 2, "W")
}

// parseKWh accepts "3.5" and "3,5".
func parseKWh(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid kWh value %q", s)
	}
	return v, nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
