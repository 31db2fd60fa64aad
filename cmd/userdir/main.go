package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/userdir/internal/api"
	"github.com/pders01/userdir/internal/config"
	"github.com/pders01/userdir/internal/debuglog"
	"github.com/pders01/userdir/internal/history"
	"github.com/pders01/userdir/internal/media"
	"github.com/pders01/userdir/internal/tui"
	"github.com/pders01/userdir/internal/users"
	"github.com/pders01/userdir/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

type options struct {
	configPath     string
	baseURL        string
	pageSize       int
	logLevel       string
	generateConfig bool
	version        bool
	quiet          bool
	noHistory      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          tui.AppName,
		Short:        "Browse and search a remote user directory in the terminal",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case opts.version:
				printVersion(cmd.OutOrStdout())
				return nil
			case opts.generateConfig:
				return generateConfig(cmd.OutOrStdout(), opts.configPath)
			}
			return runTUI(cmd, opts)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	f.StringVar(&opts.baseURL, "base-url", "", "API base URL (overrides config)")
	f.IntVar(&opts.pageSize, "page-size", 0, "Users requested per page (overrides config)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	f.BoolVar(&opts.noHistory, "no-history", false, "Do not read or write the search history")

	root.Flags().BoolVar(&opts.generateConfig, "generate-config", false, "Generate default config file")
	root.Flags().BoolVar(&opts.version, "version", false, "Show version information")
	root.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Skip startup banner")

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(opts),
		newListCmd(opts),
		newSearchCmd(opts),
		newShowCmd(opts),
		newHistoryCmd(opts),
	)

	return root
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", tui.AppName, Version)
	fmt.Fprintln(w, tui.Tagline)
	fmt.Fprintln(w, "github.com/pders01/userdir")
}

func generateConfig(w io.Writer, path string) error {
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.GenerateDefaultConfig(path); err != nil {
		return fmt.Errorf("generating config: %w", err)
	}
	fmt.Fprintf(w, "Generated default configuration at: %s\n", path)
	return nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.API.BaseURL = opts.baseURL
	}
	if flags.Changed("page-size") {
		cfg.API.PageSize = opts.pageSize
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if opts.noHistory {
		cfg.Search.HistoryEnabled = false
	}

	base, err := validation.ForLocal(cfg.API.AllowLocal).ValidateBaseURL(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.API.BaseURL, err)
	}
	cfg.API.BaseURL = base

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	level := debuglog.ParseLogLevel(cfg.Log.Level)
	if err := debuglog.Setup(level, cfg.Log.Path); err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	debuglog.Infof("%s %s starting against %s", tui.AppName, Version, cfg.API.BaseURL)
	return nil
}

func newService(cfg *config.Config) (*users.Service, error) {
	client, err := api.NewClient(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}
	return users.NewService(client), nil
}

// openHistory returns nil when history is disabled.
func openHistory(cfg *config.Config) (*history.History, error) {
	if !cfg.Search.HistoryEnabled || cfg.Search.HistoryPath == "" {
		return nil, nil
	}
	h, err := history.Open(cfg.Search.HistoryPath, cfg.Search.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("opening search history: %w", err)
	}
	return h, nil
}

func runTUI(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	if !opts.quiet {
		tui.WriteBanner(cmd.OutOrStdout(), Version)
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer debuglog.Close()

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	deps := tui.Deps{
		Source: svc,
		Opener: media.NewLauncher(cfg),
	}

	h, err := openHistory(cfg)
	if err != nil {
		// run without history when the file is locked or unreadable
		debuglog.Warnf("%v", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	if h != nil {
		defer h.Close()
		deps.History = h
	}

	app := tui.NewApp(cfg, deps)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
