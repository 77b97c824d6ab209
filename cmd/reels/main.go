// Package main provides the reels CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/openscroll/reels/internal/api"
	"github.com/openscroll/reels/internal/config"
	"github.com/openscroll/reels/internal/feed"
	"github.com/openscroll/reels/internal/logging"
	"github.com/openscroll/reels/internal/paging"
	"github.com/openscroll/reels/internal/session"
	"github.com/openscroll/reels/internal/store"
	"github.com/openscroll/reels/internal/ui"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serverURL string
		owner     string
		category  string
		featured  bool
		noLive    bool
	)

	rootCmd := &cobra.Command{
		Use:     "reels",
		Short:   "Watch a short-form video feed in your terminal",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(serverURL, owner, category, featured, noLive)
		},
	}

	rootCmd.SetVersionTemplate("reels version {{.Version}}\n")
	rootCmd.Flags().StringVar(&serverURL, "server", "", "content API base URL (overrides config)")
	rootCmd.Flags().StringVar(&owner, "owner", "", "show a single creator's reels")
	rootCmd.Flags().StringVar(&category, "category", "", "feed category filter")
	rootCmd.Flags().BoolVar(&featured, "featured", false, "featured reels only")
	rootCmd.Flags().BoolVar(&noLive, "no-live", false, "disable the live counter stream")

	return rootCmd
}

func run(serverURL, owner, category string, featured, noLive bool) error {
	if err := logging.Init(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	// Persist the generated viewer ID (and any first-run defaults).
	if err := cfg.Save(); err != nil {
		logging.Warn("could not save config", "error", err)
	}

	filter := api.Filter{
		Owner:    cfg.Filter.Owner,
		Featured: cfg.Filter.Featured,
		Category: cfg.Filter.Category,
	}
	if owner != "" {
		filter.Owner = owner
	}
	if category != "" {
		filter.Category = category
	}
	if featured {
		filter.Featured = true
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	client := api.NewClient(cfg.ServerURL, cfg.ViewerID)

	pager := paging.NewManager(func(ctx context.Context, cursor string, pageSize int) (feed.Page, error) {
		return client.FetchPage(ctx, filter, cursor, pageSize)
	}, cfg.PageSize)

	opts := []session.Option{session.WithViewerStore(st)}
	if cfg.UI.Haptics {
		opts = append(opts, session.WithHaptics(terminalHaptic))
	}
	sess := session.New(pager, opts...)
	sess.Playback().SetMuted(cfg.UI.Muted)
	sess.Playback().SetRate(cfg.UI.PlaybackRate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var counters <-chan api.CounterUpdate
	if !noLive {
		stream := api.NewCounterStream(cfg.ServerURL)
		go stream.Run(ctx)
		counters = stream.Updates()
	}

	model := ui.NewModel(sess, client, filter, ui.Options{Counters: counters})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithReportFocus(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// terminalHaptic is the closest a terminal gets to a haptic pulse.
// Best-effort; never blocks meaningfully.
func terminalHaptic() {
	fmt.Fprint(os.Stderr, "\a")
}
