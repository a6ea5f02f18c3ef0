package cli

import (
	"context"
	"errors"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"whiterabbit/internal/config"
	"whiterabbit/internal/eventbus"
	"whiterabbit/internal/stores/detail"
	"whiterabbit/internal/stores/filter"
	"whiterabbit/internal/stores/quote"
	"whiterabbit/internal/stores/search"
	"whiterabbit/internal/ui"
)

// events the TUI redraws on
var uiEvents = []eventbus.EventType{
	eventbus.EventSearchChanged,
	eventbus.EventSearchSettled,
	eventbus.EventDetailLoading,
	eventbus.EventDetailLoaded,
	eventbus.EventDetailFailed,
	eventbus.EventFilterLoaded,
	eventbus.EventFilterFailed,
	eventbus.EventQuoteReady,
	eventbus.EventQuoteFailed,
	eventbus.EventError,
}

func init() {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Search and read mysteries in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runBrowse,
	}

	cmd.Flags().String("log-file", "", "Log file (default: whiterabbit.log next to the config file)")

	RootCmd.AddCommand(cmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	bus := eventbus.New(nil)
	defer bus.Close()

	svc, cfg, err := loadConfig(bus)
	if err != nil {
		return err
	}

	// stdout belongs to the terminal UI
	logPath, _ := cmd.Flags().GetString("log-file")
	if logPath == "" {
		logPath = cfg.Log.File
	}
	if logPath == "" {
		logPath = filepath.Join(filepath.Dir(svc.Path()), "whiterabbit.log")
	}
	logger, err := newLogger(cfg, logPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stores := newStores(cfg, bus, logger)
	defer stores.Search.Close()

	model := ui.NewModel(ctx, bus, cfg, stores, logger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.SetProgram(p)

	// Set up event forwarding to UI
	eventChan := make(chan eventbus.DomainEvent, 100)
	done := make(chan struct{})
	forward := func(e eventbus.DomainEvent) {
		select {
		case eventChan <- e:
		default:
			logger.Debug("event channel full, dropping event", zap.String("type", string(e.Type())))
		}
	}
	for _, t := range uiEvents {
		unsubscribe := bus.Subscribe(t, forward)
		defer unsubscribe()
	}
	go func() {
		for {
			select {
			case e := <-eventChan:
				p.Send(ui.EventMsg{Event: e})
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	logger.Info("starting browser", zap.String("upstream", cfg.API.BaseURL))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("browser failed", zap.Error(err))
		return err
	}
	logger.Info("browser exited")
	return nil
}

func newStores(cfg *config.Config, bus eventbus.EventBus, logger *zap.Logger) ui.Stores {
	client := newClient(cfg, logger)
	return ui.Stores{
		Search: search.New(search.FromClient(client), search.Options{
			Debounce: cfg.Search.Debounce.Std(),
			Limit:    cfg.Search.Limit,
			Logger:   logger,
			Bus:      bus,
		}),
		Detail: detail.New(client, detail.Options{Timeout: cfg.API.Timeout.Std(), Logger: logger, Bus: bus}),
		Filter: filter.New(client, filter.Options{Logger: logger, Bus: bus}),
		Quote:  quote.New(client, quote.Options{Logger: logger, Bus: bus}),
	}
}
