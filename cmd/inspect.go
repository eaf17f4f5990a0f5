package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vibetorch/internal/bridge"
	"github.com/nextlevelbuilder/vibetorch/internal/config"
	"github.com/nextlevelbuilder/vibetorch/internal/export"
	"github.com/nextlevelbuilder/vibetorch/internal/inspector"
	"github.com/nextlevelbuilder/vibetorch/internal/session"
	"github.com/nextlevelbuilder/vibetorch/internal/store/sqlite"
	"github.com/nextlevelbuilder/vibetorch/pkg/browser"
)

type inspectOptions struct {
	embed    string
	headless bool
	start    bool
	hover    bool
	noStore  bool
}

func inspectCmd() *cobra.Command {
	var opts inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Open a page in Chrome and attach the inspector",
		Long: `Open a page in Chrome with the inspector attached. Toggle it with the
configured shortcut, click elements to pin them, and press Enter to export.

With --embed the inspector reports to a running "vibetorch serve" gateway
and accepts start/stop/toggle commands from it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runInspect(ctx, cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.embed, "embed", "", "gateway bridge URL, e.g. ws://127.0.0.1:7431/__vibetorch/bridge")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "run Chrome headless")
	cmd.Flags().BoolVar(&opts.start, "start", false, "activate the inspector immediately")
	cmd.Flags().BoolVar(&opts.hover, "hover", false, "print a line for every hovered element")
	cmd.Flags().BoolVar(&opts.noStore, "no-history", false, "do not record exports in the history store")
	return cmd
}

func runInspect(ctx context.Context, cmd *cobra.Command, target string, opts inspectOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()
	rep := newReporter(cmd.OutOrStdout(), opts.hover)

	tp := initTracing(ctx, cfg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tp.Shutdown(shutdownCtx)
	}()

	mgr := browser.New(
		browser.WithHeadless(opts.headless || cfg.Browser.Headless),
		browser.WithBin(cfg.Browser.Bin),
		browser.WithLogger(logger),
	)
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	page, err := mgr.Open(ctx, target)
	if err != nil {
		return err
	}
	if st := mgr.Status(); st.Running {
		logger.Debug("browser ready", "bin", st.Bin, "pages", st.Pages, "url", st.URL)
	}

	var b *bridge.Bridge
	var done <-chan struct{}
	if opts.embed != "" {
		port, err := bridge.DialParent(ctx, opts.embed, pageOrigin(target))
		if err != nil {
			return err
		}
		defer port.Close()
		b = bridge.New(port, cfg.Inspector.TargetOrigin, bridge.WithLogger(logger))
		defer b.Close()
		done = port.Done()
		rep.info("embedded into " + port.RemoteOrigin())
	}

	sessOpts := []session.Option{
		session.WithLogger(logger),
		session.WithThrottle(cfg.Throttle()),
		session.WithCallbacks(rep.callbacks()),
	}
	if b != nil {
		sessOpts = append(sessOpts, session.Embedded(b))
	}
	sess := session.New(page, sessOpts...)

	km, err := cfg.KeyMap()
	if err != nil {
		return err
	}
	inOpts := []inspector.Option{
		inspector.WithLogger(logger),
		inspector.WithKeys(km),
		inspector.WithClipboard(export.NewClipboard(export.WithClipboardLogger(logger)), cfg.CopyOnExport()),
		inspector.WithExportHook(rep.exported),
	}
	if b != nil {
		inOpts = append(inOpts, inspector.WithBridge(b))
	}
	if cfg.Inspector.RegisterGlobal {
		inOpts = append(inOpts, inspector.RegisterGlobal())
	}
	if !opts.noStore {
		hist, err := sqlite.Open(cfg.StorePath(), cfg.Store.CacheSize, sqlite.WithLogger(logger))
		if err != nil {
			rep.warn(fmt.Sprintf("history disabled: %v", err))
		} else {
			defer hist.Close()
			inOpts = append(inOpts, inspector.WithHistory(hist))
		}
	}

	insp := inspector.New(sess, inOpts...)
	insp.Attach()
	defer insp.Close()
	removeTeardown := page.OnTeardown(insp.PageGone)
	defer removeTeardown()

	if w := watchConfig(cfg, func(next *config.Config) {
		if km, err := next.KeyMap(); err == nil {
			insp.SetKeys(km)
		} else {
			logger.Warn("ignoring invalid key bindings", "error", err)
		}
		sess.SetThrottle(next.Throttle())
		insp.SetCopyOnExport(next.CopyOnExport())
	}); w != nil {
		defer w.Stop()
	}

	if opts.start {
		if err := sess.Start(); err != nil {
			return err
		}
	}
	rep.info(fmt.Sprintf("inspecting %s; %s toggles, click pins, Enter exports, Esc stops", page.Location(), km.Primary))

	select {
	case <-ctx.Done():
	case <-done:
		rep.warn("gateway connection closed")
	}
	return nil
}

// watchConfig reloads the config file on change and applies it.
func watchConfig(cfg *config.Config, apply func(*config.Config)) *config.Watcher {
	path := resolveConfigPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	w, err := config.NewWatcher(path)
	if err != nil {
		slog.Debug("config watcher unavailable", "error", err)
		return nil
	}
	w.OnChange(func(next *config.Config) {
		cfg.ReplaceFrom(next)
		apply(cfg)
	})
	if err := w.Start(); err != nil {
		slog.Debug("config watcher unavailable", "error", err)
		return nil
	}
	return w
}

// pageOrigin returns scheme://host of a page URL, or "" when it has none.
func pageOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
