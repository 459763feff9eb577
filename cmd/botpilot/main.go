package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rahul/botpilot/internal/engine"
	"github.com/rahul/botpilot/internal/escalation"
	"github.com/rahul/botpilot/internal/localagent"
	"github.com/rahul/botpilot/internal/observability"
	"github.com/rahul/botpilot/internal/remote"
	"github.com/rahul/botpilot/internal/session"
	"github.com/rahul/botpilot/internal/store"
	"github.com/rahul/botpilot/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	instanceID := flag.String("instance", "", "automation instance to drive (required)")
	siteID := flag.String("site", "", "target site id (required)")
	activity := flag.String("activity", "", "activity name (required)")
	planID := flag.String("plan", "", "plan id to resume; empty lets the planner produce one")
	userID := flag.String("user", "", "owning user id")
	local := flag.Bool("local", false, "drive a local browser agent instead of the remote service")
	headless := flag.Bool("headless", true, "run the local browser headless")
	flag.Parse()

	if *instanceID == "" || *siteID == "" || *activity == "" {
		flag.Usage()
		os.Exit(2)
	}

	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := observability.NewLogger()

	statusStore, err := store.NewStatusStore(cfg.Store.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer statusStore.Close()

	registry, err := session.NewRegistry(cfg.Store.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer registry.Close()

	// Escalation channels
	var notifiers []escalation.Notifier
	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := escalation.NewTelegramNotifier(tgCfg.Token, tgCfg.ChatID)
		if err != nil {
			log.Printf("Warning: Failed to initialize telegram notifier: %v", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	if dcCfg, ok := cfg.GetDiscordConfig(); ok {
		dc, err := escalation.NewDiscordNotifier(dcCfg.Token, dcCfg.ChannelID)
		if err != nil {
			log.Printf("Warning: Failed to initialize discord notifier: %v", err)
		} else {
			notifiers = append(notifiers, dc)
		}
	}
	escalator := escalation.NewGateway(logger, notifiers...)

	// Agent and planner backends
	var actor engine.PlanActor
	var planner engine.Planner
	var sessions engine.SessionStore = registry

	if *local {
		book := localagent.NewPlanBook()
		browser := localagent.NewBrowserActor(book, *headless)
		defer browser.Close()
		actor = browser

		pName, pCfg := cfg.GetDefaultProvider()
		if pName == "" {
			log.Fatal("No enabled provider found in config (local mode needs one for planning)")
		}

		var model llms.Model
		switch pName {
		case "openai", "openrouter":
			opts := []openai.Option{
				openai.WithToken(pCfg.APIKey),
				openai.WithModel(pCfg.Model),
			}
			if pCfg.BaseURL != "" {
				opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
			}
			model, err = openai.New(opts...)
		default:
			log.Fatalf("Provider %s not yet implemented in main", pName)
		}
		if err != nil {
			log.Fatal(err)
		}
		planner = localagent.NewLLMPlanner(model, book)
	} else {
		if cfg.Automation.BaseURL == "" {
			log.Fatal("automation.base_url is not configured")
		}
		client := remote.NewClient(cfg.Automation.BaseURL, cfg.Automation.APIKey, cfg.AutomationTimeout())
		actor = client
		planner = client
		sessions = session.Fanout{registry, client}
	}

	loop := engine.NewControlLoop(
		engine.NewCycleExecutor(actor, logger),
		planner, sessions, escalator, statusStore, logger,
		engine.Options{
			MaxCycles:           cfg.Engine.MaxCycles,
			MaxAttentionRetries: cfg.Engine.MaxAttentionRetries,
			CycleDelay:          cfg.CycleDelay(),
			AttentionWait:       cfg.AttentionWait(),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	st := &engine.State{
		InstanceID:   *instanceID,
		PlanID:       *planID,
		SiteID:       *siteID,
		ActivityName: *activity,
		UserID:       *userID,
	}

	res, runErr := loop.Run(ctx, st)
	stop()

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	switch {
	case runErr != nil:
		log.Printf("\033[91m[ FAIL ] ENGINE ERROR after %d cycles: %v\033[0m", res.TotalCycles, runErr)
		os.Exit(2)
	case !res.Success:
		log.Printf("\033[95m[ FAIL ] PLAN FAILED after %d cycles: %s\033[0m", res.TotalCycles, res.Error)
		os.Exit(1)
	default:
		log.Printf("\033[96m[ DONE ] PLAN COMPLETED in %d cycles (%dms, %d/%d tokens)\033[0m",
			res.TotalCycles, res.TotalExecutionTimeMs, res.TotalTokens.Input, res.TotalTokens.Output)
	}
}
