// Command assistant runs an interactive shopping-assistant session on
// stdin/stdout: extractor, plan engine, agent gateway, and the
// conversation orchestrator wired per the configuration file.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"assistant/pkg/agents"
	"assistant/pkg/config"
	"assistant/pkg/eventlog"
	"assistant/pkg/extractor"
	"assistant/pkg/gateway"
	"assistant/pkg/logx"
	"assistant/pkg/mcp"
	"assistant/pkg/orch"
	"assistant/pkg/persistence"
	"assistant/pkg/plan"
	"assistant/pkg/state"
)

func main() {
	var configPath string
	var debug bool
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if configPath == "" {
		configPath = os.Getenv("ASSISTANT_CONFIG")
	}
	if debug {
		logx.SetDebug(true, nil)
	}
	logger := logx.NewLogger("main")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	events, err := eventlog.NewWriter(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to open event log: %v", err)
	}
	defer func() { _ = events.Close() }()

	snapshots, err := state.NewStore(cfg.StateDir)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}

	if err := persistence.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() { _ = persistence.Close() }()

	library := plan.NewLibrary()
	if cfg.TemplateDir != "" {
		if err := library.LoadDir(cfg.TemplateDir); err != nil {
			log.Fatalf("Failed to load plan templates: %v", err)
		}
	}

	invoker := gateway.NewInvoker(agents.DefaultSet(), events)

	var extract extractor.Extractor
	switch cfg.Extractor.Backend {
	case config.ExtractorClaude:
		extract = extractor.NewClaude(cfg.Extractor.APIKey, cfg.Extractor.Model)
		logger.Info("using Claude extractor")
	default:
		extract = extractor.NewRuleBased()
		logger.Info("using rule-based extractor")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.ToolServer.Enabled {
		registry := mcp.NewRegistry()
		server := mcp.NewServer(cfg.ToolServer.Addr, registry)
		go func() {
			if err := server.ListenAndServe(); err != nil {
				logger.Error("tool server failed: %v", err)
			}
		}()
		defer func() { _ = server.Shutdown() }()
	}

	orchestrator := orch.New(orch.Options{
		Templates:    library,
		Invoker:      invoker,
		Extractor:    extract,
		Events:       events,
		Snapshots:    snapshots,
		Store:        persistence.Ops(),
		AgentTimeout: cfg.Agents.Timeout,
	})
	session := orch.NewSession(orchestrator, cfg.Session)

	logger.Info("session %s started", orchestrator.SessionID())
	if err := session.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("session ended with error: %v", err)
		os.Exit(1)
	}

	stats := invoker.GetStats()
	logger.Info("session %s ended: %d turns, %d agent invocations",
		orchestrator.SessionID(), orchestrator.TurnCount(), stats.TotalInvocations)
}
