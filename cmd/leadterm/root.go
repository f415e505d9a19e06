package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"leadterm/internal/config"
	"leadterm/internal/currency"
	"leadterm/internal/events"
	"leadterm/internal/geo"
	"leadterm/internal/listing"
	"leadterm/internal/storage"
	"leadterm/internal/submit"
	"leadterm/internal/theme"
	"leadterm/internal/ui"
	"leadterm/internal/wizard"
)

// app carries what every command needs once PersistentPreRunE has run.
type app struct {
	configPath string
	cfg        *config.Store
	logFile    *os.File
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "leadterm",
		Short: "Short-term rental owner intake and catalogue",
		Long: `leadterm - short-term rental management in the terminal

Running leadterm without a subcommand opens the interactive app: the owner
sign-up wizard, the listing catalogue, favorites and received leads.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/leadterm/config.yaml)")
	root.PersistentFlags().StringP("log-level", "l", "", "Log level: disabled, debug, info, warn, error")
	root.PersistentFlags().String("data-dir", "", "Directory for the database and log file")

	root.AddCommand(newLeadsCmd(a))
	root.AddCommand(newListingsCmd(a))
	root.AddCommand(newFavoritesCmd(a))
	root.AddCommand(newSettingsCmd(a))

	root.SilenceUsage = true
	root.SilenceErrors = true
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", theme.Default().ErrorLabel(), err.Error())
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	if err := os.MkdirAll(cfg.Config.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	if cfg.Config.LogLevel == "disabled" {
		log.SetOutput(io.Discard)
		return nil
	}
	var level log.Level
	switch cfg.Config.LogLevel {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	default:
		level = log.InfoLevel
	}

	// the TUI owns the terminal, so logs always go to a JSON file
	logPath := filepath.Join(cfg.Config.DataDir, "leadterm.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f
	log.SetDefault(log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05.000Z07:00",
		Level:           level,
		ReportCaller:    true,
		Formatter:       log.JSONFormatter,
	}))
	return nil
}

func (a *app) teardown() error {
	if a.logFile == nil {
		return nil
	}
	log.SetDefault(log.New(io.Discard))
	err := a.logFile.Close()
	a.logFile = nil
	return err
}

func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	return storage.Open(ctx, a.cfg.Config.DataDir)
}

func (a *app) owner() string {
	return a.cfg.Config.Name
}

func (a *app) formatter() (*currency.Formatter, error) {
	return currency.NewFormatter(a.cfg.Config.Locale, a.cfg.Config.CurrencySymbol)
}

// rules builds the wizard ruleset. The config was validated on load, so unit
// parse errors cannot occur here and fall back to whole units.
func (a *app) rules() wizard.Rules {
	c := a.cfg.Config.Wizard
	rules := wizard.DefaultRules()
	if c.PhoneMinDigits > 0 {
		rules.PhoneMinDigits = c.PhoneMinDigits
	}
	rules.ValueUnit, _ = currency.ParseUnit(c.ValueUnit)
	rules.RateUnit, _ = currency.ParseUnit(c.RateUnit)
	return rules
}

// geocoder picks the configured address provider. The catalogue provider
// searches the addresses of the stored listings.
func (a *app) geocoder(ctx context.Context, listings listing.Repository) (*geo.Service, error) {
	c := a.cfg.Config.Geocoder
	switch c.Provider {
	case config.GeocoderNominatim:
		return geo.NewService(geo.NewNominatim(c.URL, c.UserAgent)), nil
	case config.GeocoderCatalog:
		items, err := listings.ListListings(ctx, listing.Filter{})
		if err != nil {
			return nil, err
		}
		return geo.NewService(geo.NewCatalog(listing.Addresses(items))), nil
	default:
		return geo.NewService(nil), nil
	}
}

// inserter returns the submission backend and the table it writes to.
func (a *app) inserter(store *storage.Store) (submit.Inserter, string) {
	c := a.cfg.Config.Submit
	if c.Backend == config.BackendREST {
		return submit.NewRESTInserter(c.REST.URL, c.REST.Key, c.Timeout), c.Table
	}
	return store, storage.LeadsTable
}

// errNoTerminal is returned when the interactive app is started without one.
var errNoTerminal = errors.New("the interactive app needs a terminal; use a subcommand such as 'leadterm leads list'")

func (a *app) runTUI(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNoTerminal
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if added, err := store.SeedListings(ctx, listing.Seed()); err != nil {
		return err
	} else if added > 0 {
		log.Info("seeded listings", "count", added)
	}

	formatter, err := a.formatter()
	if err != nil {
		return err
	}
	service, err := a.geocoder(ctx, store)
	if err != nil {
		return err
	}

	rules := a.rules()
	summaryUnit := currency.Whole
	if rules.ValueUnit == currency.Cents || rules.RateUnit == currency.Cents {
		summaryUnit = currency.Cents
	}
	opts := []submit.Option{submit.WithFormatter(func(v float64) string {
		return formatter.Format(v, summaryUnit)
	})}
	if url := a.cfg.Config.Events.URL; url != "" {
		pub, err := events.Connect(url)
		if err != nil {
			// leads still land in the backend without notifications
			log.Warn("events disabled", "url", url, "err", err)
		} else {
			defer pub.Close()
			opts = append(opts, submit.WithNotifier(pub))
		}
	}
	inserter, table := a.inserter(store)
	log.Info("starting", "backend", a.cfg.Config.Submit.Backend, "table", table, "geocoder", service.State())

	program := ui.NewProgram(ui.Deps{
		Config:    a.cfg,
		Listings:  store,
		Favorites: store,
		Leads:     store,
		Importer:  store,
		Geo:       service,
		Submitter: submit.NewAdapter(inserter, table, opts...),
		Formatter: formatter,
		Rules:     rules,
	})
	return program.Start()
}
