package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/quotefilter/internal/client"
	"github.com/jask/quotefilter/internal/config"
	"github.com/jask/quotefilter/internal/filter"
	qflog "github.com/jask/quotefilter/internal/log"
	"github.com/jask/quotefilter/internal/page"
	"github.com/jask/quotefilter/internal/tui"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	baseURL    string
	logFile    string
	verbose    bool
	quiet      bool
}

// apply overlays the flags that override config keys.
func (f *globalFlags) apply(cfg *config.Config) {
	if f.baseURL != "" {
		cfg.Server.BaseURL = f.baseURL
	}
	if f.logFile != "" {
		cfg.Log.File = f.logFile
	}
}

// runtime is what every command needs after flags and config are resolved.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	close  func() error
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "quotefilter",
		Short: "Filter the quote table from your terminal",
		Long: `quotefilter loads the quote site's filter page, turns every multiselect
filter on it into a searchable terminal list and submits the combined
selection to the site, showing the filtered quotes it sends back.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default $HOME/.config/quotefilter/config.toml)")
	pf.StringVar(&flags.baseURL, "url", "", "quote site base URL, overrides server.base_url")
	pf.StringVar(&flags.logFile, "log-file", "", "log file, overrides log.file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "only log warnings and errors")

	root.AddCommand(newPingCmd(flags), newGroupsCmd(flags), newConfigCmd(flags))
	return root
}

// setup loads config, applies flag overrides and installs the logger.
// logToStderr is for commands that do not take over the terminal.
func setup(flags *globalFlags, logToStderr bool) (*runtime, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level, err := qflog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	level = qflog.Resolve(level, flags.verbose, flags.quiet)
	path := cfg.Log.File
	if logToStderr {
		path = ""
	}
	logger, closeFn, err := qflog.Setup(path, level)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, close: closeFn}, nil
}

func (rt *runtime) client() (*client.Client, error) {
	return client.New(client.Options{
		BaseURL:    rt.cfg.Server.BaseURL,
		PagePath:   rt.cfg.Server.PagePath,
		FilterPath: rt.cfg.Server.FilterPath,
		PingPath:   rt.cfg.Server.PingPath,
		Timeout:    rt.cfg.Server.Timeout,
		Logger:     rt.logger,
	})
}

func (rt *runtime) selectors() page.Selectors {
	s := rt.cfg.Selectors
	return page.Selectors{
		Widget:   s.Widget,
		Search:   s.Search,
		Options:  s.Options,
		Selected: s.Selected,
		Results:  s.Results,
		Apply:    s.Apply,
		CSRFMeta: s.CSRFMeta,
	}
}

// loadPage fetches and parses the filter page, logging every widget
// instance that could not be bound.
func (rt *runtime) loadPage(ctx context.Context, c *client.Client) (*page.Page, []*filter.Widget, []error, error) {
	raw, err := c.FetchPage(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch page: %w", err)
	}
	p, err := page.Parse(bytes.NewReader(raw), rt.selectors())
	if err != nil {
		return nil, nil, nil, err
	}
	widgets, bindErrs := p.Bind()
	skipped := append(append([]error(nil), p.Skipped...), bindErrs...)
	for _, e := range skipped {
		rt.logger.Warn("filter widget skipped", "err", e)
	}
	if len(widgets) == 0 {
		return nil, nil, skipped, fmt.Errorf("no filter widgets could be bound on %s: %w", c.PageURL(), errors.Join(skipped...))
	}
	rt.logger.Info("page loaded", "url", c.PageURL(), "widgets", len(widgets), "skipped", len(skipped))
	return p, widgets, skipped, nil
}

func runUI(cmd *cobra.Command, flags *globalFlags) error {
	rt, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	c, err := rt.client()
	if err != nil {
		return err
	}
	p, widgets, skipped, err := rt.loadPage(ctx, c)
	if err != nil {
		return err
	}
	ctrl, err := filter.NewController(widgets, p.Results, rt.logger)
	if err != nil {
		return err
	}

	app := tui.New(ctx, ctrl, c, tui.Options{
		Token:   p.CSRFToken,
		Source:  c.PageURL(),
		Skipped: skipped,
		Logger:  rt.logger,
	})
	prog := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
