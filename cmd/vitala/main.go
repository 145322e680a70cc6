// Vitala is a conversational health-information assistant.
//
// It pairs an LLM with deterministic health tools (BMI, water intake,
// medication reminders, a session symptom log) and optional retrieval
// over a local knowledge base. Configuration is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	vitala serve             Start the HTTP API and web chat UI
//	vitala chat              Interactive chat in the terminal
//	vitala ask <question>    Ask a single question (for testing)
//	vitala version           Print version and build information
//	vitala -o json version   Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/seralba/vitala-health-agent/internal/agent"
	"github.com/seralba/vitala-health-agent/internal/api"
	"github.com/seralba/vitala-health-agent/internal/buildinfo"
	"github.com/seralba/vitala-health-agent/internal/config"
	"github.com/seralba/vitala-health-agent/internal/embeddings"
	"github.com/seralba/vitala-health-agent/internal/knowledge"
	"github.com/seralba/vitala-health-agent/internal/llm"
	"github.com/seralba/vitala-health-agent/internal/mqtt"
	"github.com/seralba/vitala-health-agent/internal/session"
	"github.com/seralba/vitala-health-agent/internal/tools"
	"github.com/seralba/vitala-health-agent/internal/web"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the vitala command. All OS-level
// dependencies are injected as parameters so the lifecycle can be
// driven from tests. Arguments are parsed by hand: the flag package
// relies on package-level globals (flag.CommandLine), which makes it
// impossible to call run concurrently from tests, and the argument
// surface is small enough that manual parsing is clearer than bringing
// in a CLI framework.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "chat":
		return runChat(ctx, stdin, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: vitala ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// vitala is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Vitala - AI Health Assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: vitala [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the HTTP API and web chat UI")
	fmt.Fprintln(w, "  chat         Interactive chat in the terminal")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/vitala/config.yaml, /etc/vitala/config.yaml")
	return nil
}

// runAsk handles the "vitala ask <question>" subcommand. It boots a
// minimal agent (in-memory sessions, no persistence) and processes a
// single question, printing the response to stdout. Useful for quick
// smoke tests and debugging without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	loop, err := buildLoop(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	sess := loop.Sessions().GetOrCreate(session.NewID())

	answer, err := loop.Respond(ctx, sess, question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, answer)
	return nil
}

// runServe handles the "vitala serve" subcommand. It is the primary
// operating mode: loads config, opens the session store, builds the
// knowledge base, initializes the agent loop with all health tools,
// starts the HTTP server, and blocks until a shutdown signal arrives.
//
// The shutdown sequence is:
//  1. SIGINT or SIGTERM cancels the context
//  2. The MQTT publisher (if any) announces "offline" and disconnects
//  3. The HTTP server drains in-flight requests
//  4. The session store is closed via defer
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Vitala",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
	)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known. The
	// initial Info-level logger covers only the startup banner.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			// Already validated by config.Validate, so the error path
			// is unreachable in practice.
			level, _ = config.ParseLogLevel(cfg.LogLevel)
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.LLM.Model,
		"rag_enabled", cfg.RAG.Enabled,
	)

	// --- Session store ---
	// Optional SQLite persistence. Without a data_dir, sessions are
	// held in memory only and vanish on restart.
	var store *session.Store
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
		}
		dbPath := filepath.Join(cfg.DataDir, "vitala.db")
		store, err = session.OpenStore(dbPath)
		if err != nil {
			return fmt.Errorf("open session database %s: %w", dbPath, err)
		}
		defer store.Close()
		logger.Info("session database opened", "path", dbPath)
	} else {
		logger.Info("session persistence disabled (no data_dir configured)")
	}

	loop, err := buildLoop(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	// --- HTTP server ---
	// JSON API plus the embedded web chat UI on the same listener.
	webServer := web.NewServer(loop, logger)
	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, loop, webServer, logger)

	// --- Signal handling and graceful shutdown ---
	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- MQTT publisher ---
	// Optional: announces availability and pushes runtime stats so a
	// deployment can be monitored without polling the HTTP API.
	var mqttPub *mqtt.Publisher
	if cfg.MQTT.Enabled {
		stats := &mqttStatsAdapter{loop: loop, stats: server.Stats()}
		mqttPub = mqtt.New(cfg.MQTT, stats, logger)
		go func() {
			if err := mqttPub.Start(ctx); err != nil {
				logger.Error("mqtt publisher failed", "error", err)
			}
		}()
		logger.Info("mqtt publishing enabled", "broker", cfg.MQTT.URL, "prefix", cfg.MQTT.TopicPrefix)
	} else {
		logger.Info("mqtt publishing disabled (not configured)")
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		// Publish MQTT offline status before disconnecting.
		if mqttPub != nil {
			offlineCtx, offlineCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer offlineCancel()
			if err := mqttPub.Stop(offlineCtx); err != nil {
				logger.Error("mqtt shutdown failed", "error", err)
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	// Start blocks until the server is shut down (via context
	// cancellation or fatal error).
	if err := server.Start(); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Vitala stopped")
	return nil
}

// buildLoop assembles the agent loop shared by serve, chat, and ask:
// config validation, LLM client, health tool registry, session
// manager, and the optional retrieval stack.
func buildLoop(ctx context.Context, cfg *config.Config, store *session.Store, logger *slog.Logger) (*agent.Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.LLM.TimeoutSec) * time.Second
	backend := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, timeout, logger)

	registry, err := tools.NewHealthRegistry(logger)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	sessions := session.NewManager(store, logger)

	// Knowledge base and retriever. Passages are embedded once at
	// startup; a failure here is fatal because serving with a silently
	// empty knowledge base would be worse than not starting.
	var retriever *knowledge.Retriever
	if cfg.RAG.Enabled {
		embClient := embeddings.New(embeddings.Config{
			BaseURL: cfg.Embeddings.BaseURL,
			APIKey:  cfg.Embeddings.APIKey,
			Model:   cfg.Embeddings.Model,
		})
		kb, err := knowledge.BuildStore(ctx, cfg.RAG.KnowledgePath, embClient, logger)
		if err != nil {
			return nil, fmt.Errorf("build knowledge base: %w", err)
		}
		retriever = knowledge.NewRetriever(kb, embClient, logger)
		logger.Info("knowledge base ready",
			"passages", kb.Len(),
			"model", kb.Model(),
			"top_k", cfg.RAG.TopK,
		)
	}

	return agent.NewLoop(agent.Config{
		Backend:   backend,
		Model:     cfg.LLM.Model,
		Registry:  registry,
		Sessions:  sessions,
		Retriever: retriever,
		TopK:      cfg.RAG.TopK,
		Timeout:   timeout,
	}, logger), nil
}

// newLogger creates a structured text logger that writes to w at the
// given level. All log output goes through slog; this helper
// standardizes the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty, that exact path is used (and must exist).
// Otherwise, [config.FindConfig] searches the default locations.
// Returns the parsed config, the path that was loaded, and any error.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// mqttStatsAdapter bridges the agent loop, session manager, and API
// stats counters to the [mqtt.StatsSource] interface. It holds only
// narrow references, not pointers to mutable fields.
type mqttStatsAdapter struct {
	loop  *agent.Loop
	stats *api.Stats
}

func (a *mqttStatsAdapter) Uptime() time.Duration { return buildinfo.Uptime() }
func (a *mqttStatsAdapter) Version() string       { return buildinfo.Version }
func (a *mqttStatsAdapter) Model() string         { return a.loop.Model() }
func (a *mqttStatsAdapter) ActiveSessions() int   { return a.loop.Sessions().Count() }
func (a *mqttStatsAdapter) Turns() int64          { return a.stats.Snapshot().Turns }
func (a *mqttStatsAdapter) Failures() int64       { return a.stats.Snapshot().Failures }
func (a *mqttStatsAdapter) LastRequestTime() time.Time {
	return a.stats.Snapshot().LastRequest
}
