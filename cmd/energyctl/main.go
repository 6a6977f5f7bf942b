// energyctl manages the Gray Logic Energy database from the command line.
//
// It operates directly on the SQLite store used by the daemon, so it can be
// used to seed devices, flip their state and run one-off overload checks.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/choria-io/fisk"

	_ "github.com/nerrad567/gray-logic-energy/migrations"

	"github.com/nerrad567/gray-logic-energy/internal/device"
	"github.com/nerrad567/gray-logic-energy/internal/energy"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-energy/internal/notify"
)

// ctl holds flag values and the output stream for one invocation.
type ctl struct {
	out io.Writer

	dbPath     string
	separator  string
	jsonFormat bool
	timeout    time.Duration

	deviceID   int64
	name       string
	watts      float64
	startOn    bool
	state      string
	limitArg   string
	webhookURL string
	source     string
}

func main() {
	c := &ctl{out: os.Stdout}
	newApp(c).MustParseWithUsage(os.Args[1:])
}

func newApp(c *ctl) *fisk.Application {
	defaults := config.Default()

	app := fisk.New("energyctl", "Manages Gray Logic Energy devices and limits")

	app.Flag("db", "Path to the SQLite database").Short('d').Envar("GRAYLOGIC_DATABASE_PATH").Default(defaults.Database.Path).StringVar(&c.dbPath)
	app.Flag("separator", "Decimal separator for kWh values").Default(defaults.Energy.DecimalSeparator).EnumVar(&c.separator, energy.SeparatorComma, energy.SeparatorPeriod)
	app.Flag("json", "Produce JSON output").UnNegatableBoolVar(&c.jsonFormat)
	app.Flag("timeout", "Maximum time for the operation").Default("10s").DurationVar(&c.timeout)

	dev := app.Command("device", "Manages devices").Alias("dev")

	add := dev.Command("add", "Adds a device").Action(c.deviceAddAction)
	add.Arg("name", "Device name").Required().StringVar(&c.name)
	add.Flag("watts", "Power draw when on").Short('w').Required().Float64Var(&c.watts)
	add.Flag("on", "Create the device switched on").UnNegatableBoolVar(&c.startOn)

	rm := dev.Command("rm", "Removes a device").Alias("remove").Action(c.deviceRemoveAction)
	rm.Arg("id", "Device ID").Required().Int64Var(&c.deviceID)

	dev.Command("ls", "Lists devices").Alias("list").Action(c.deviceListAction)

	toggle := app.Command("toggle", "Switches a device on or off").Action(c.toggleAction)
	toggle.Arg("id", "Device ID").Required().Int64Var(&c.deviceID)
	toggle.Arg("state", "on or off").Required().EnumVar(&c.state, "on", "off")

	app.Command("active", "Lists devices that are switched on").Action(c.activeAction)
	app.Command("usage", "Shows the current usage estimate").Action(c.usageAction)

	check := app.Command("check", "Runs an overload check and prints any alert").Action(c.checkAction)
	check.Flag("webhook", "Also deliver the alert to this webhook URL").StringVar(&c.webhookURL)
	check.Flag("source", "Source reported to the webhook").Default(defaults.Site.ID).StringVar(&c.source)

	limit := app.Command("limit", "Shows or sets the daily limit in kWh").Action(c.limitAction)
	limit.Arg("kwh", "New daily limit, either separator accepted").StringVar(&c.limitArg)

	db := app.Command("db", "Database maintenance")
	db.Command("status", "Shows applied and pending migrations").Action(c.dbStatusAction)
	db.Command("rollback", "Rolls back the most recent migration").Action(c.dbRollbackAction)

	return app
}

// store bundles the services an action works with.
type store struct {
	db       *database.DB
	devices  *device.SQLiteRepository
	plans    *energy.SQLitePlanRepository
	registry *device.Registry
}

func (c *ctl) openDB(ctx context.Context) (*database.DB, error) {
	return database.Open(ctx, database.Config{
		Path:        c.dbPath,
		WALMode:     true,
		BusyTimeout: config.Default().Database.BusyTimeout,
	})
}

// open opens and migrates the database and makes sure a plan exists.
func (c *ctl) open(ctx context.Context) (*store, error) {
	db, err := c.openDB(ctx)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s := &store{
		db:      db,
		devices: device.NewSQLiteRepository(db.DB),
		plans:   energy.NewSQLitePlanRepository(db.DB),
	}
	s.registry = device.NewRegistry(s.devices)

	if _, err := s.plans.EnsurePlan(ctx, config.Default().Energy.DefaultDailyLimitKWh); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising energy plan: %w", err)
	}

	return s, nil
}

func (c *ctl) monitor(s *store, notifier energy.Notifier) (*energy.Monitor, error) {
	m := energy.NewMonitor(s.devices, s.plans, notifier)
	if err := m.SetDecimalSeparator(c.separator); err != nil {
		return nil, err
	}
	return m, nil
}

// withStore runs fn with an opened store and a bounded context.
func (c *ctl) withStore(fn func(ctx context.Context, s *store) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer s.db.Close()

	return fn(ctx, s)
}

func (c *ctl) printAlert() energy.Notifier {
	return energy.NotifierFunc(func(_ context.Context, message string) error {
		fmt.Fprintf(c.out, "ALERT: %s\n", message)
		return nil
	})
}

func (c *ctl) alertNotifier() energy.Notifier {
	if c.webhookURL == "" {
		return c.printAlert()
	}
	return notify.NewFanout(c.printAlert(), notify.NewWebhookNotifier(c.webhookURL, c.source, c.timeout))
}
