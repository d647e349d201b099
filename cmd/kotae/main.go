// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/audit"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/syncer"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "kotae server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Provider API keys may live in a local .env; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "sync":
		runSync()
	case "audit":
		runAudit()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (sync runs, retrieval scores, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Initial sync so the server answers from current documents even when no
	// snapshot was loaded. Failures are non-fatal; queries get ErrNoIndex until
	// a sync succeeds.
	if report, syncErr := components.Syncer.Run(context.Background(), cfg.ManifestPath); syncErr != nil {
		logger.Warn("initial sync failed", zap.Error(syncErr))
	} else if !report.OK {
		logger.Warn("initial sync finished with document errors",
			zap.Int("docs_failed", report.DocsFailed))
	}

	var watchSvc *watcher.Watcher
	if cfg.Watch.Enabled {
		watchOpts := []watcher.Option{watcher.WithDebounce(cfg.Watch.Debounce())}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(cfg.ManifestPath, func() {
			if _, err := components.Syncer.Run(context.Background(), cfg.ManifestPath); err != nil {
				logger.Warn("watch-triggered sync failed", zap.Error(err))
			}
		}, watchOpts...)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Composer,
		components.Syncer,
		components.Tracker,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// askArgsReorder moves any flags (and their values) that appear after the
// question to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "kotae ask \"question\" -k 2"
// would otherwise leave -k unparsed.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kotae ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "Question is all remaining arguments joined by spaces. Multi-word questions work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
The answer cites numbered sources from the knowledge base. When the knowledge
base has no supporting document, the reply is an abstention, not a guess.

Examples:
  kotae ask what is the refund window
  kotae ask "what is the refund window"          # same as above
  kotae ask -role support how do I escalate      # role-filtered retrieval
  kotae ask -k 8 -output json your question      # wider retrieval, JSON output
`)
}

func runAsk() {
	askArgs := askArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run the pipeline locally when no server is running)")
	role := fs.String("role", "", "restrict retrieval to chunks visible to this role")
	k := fs.Int("k", 0, "number of chunks to retrieve (0 = configured default)")
	temperature := fs.Float64("temperature", -1, "generation temperature (negative = configured default)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(askArgs)

	if fs.NArg() < 1 {
		printAskUsage(fs)
		os.Exit(1)
	}
	question := buildQuestion(fs.Args())
	if question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}

	format, err := outputFormatFromFlag(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	opts := models.QueryOptions{K: *k, Role: *role}
	if *temperature >= 0 {
		t := *temperature
		opts.Temperature = &t
	}

	var result *models.QueryResult
	if *serverURL != "" {
		// Use the HTTP API when a server is running (shares its warm index and
		// audit database instead of rebuilding locally).
		result, err = askViaHTTP(*serverURL, question, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		result, err = askDirect(*configPath, question, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteQueryResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askDirect(configPath, question string, opts models.QueryOptions) (*models.QueryResult, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	ctx := context.Background()
	if components.Store.Size() == 0 {
		if _, syncErr := components.Syncer.Run(ctx, cfg.ManifestPath); syncErr != nil {
			return nil, fmt.Errorf("sync before ask: %w", syncErr)
		}
	}
	return components.Composer.Answer(ctx, question, opts)
}

func askViaHTTP(serverURL, question string, opts models.QueryOptions) (*models.QueryResult, error) {
	payload := map[string]interface{}{"question": question}
	if opts.Role != "" {
		payload["role"] = opts.Role
	}
	if opts.K > 0 {
		payload["k"] = opts.K
	}
	if opts.Temperature != nil {
		payload["temperature"] = *opts.Temperature
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func runSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = run the pipeline locally; set to sync a running server's index)")
	manifestPath := fs.String("manifest", "", "manifest path (empty = configured default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := outputFormatFromFlag(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var report *syncer.Report
	if *serverURL != "" {
		report, err = syncViaHTTP(*serverURL, *manifestPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		report, err = syncDirect(*configPath, *manifestPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteSyncReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if !report.OK {
		os.Exit(1)
	}
}

func syncDirect(configPath, manifestPath string) (*syncer.Report, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if manifestPath == "" {
		manifestPath = cfg.ManifestPath
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	return components.Syncer.Run(context.Background(), manifestPath)
}

func syncViaHTTP(serverURL, manifestPath string) (*syncer.Report, error) {
	var body io.Reader
	if manifestPath != "" {
		payload, err := json.Marshal(map[string]string{"manifest_path": manifestPath})
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}
	resp, err := http.Post(serverURL+"/api/v1/sync", "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		// A failed sync still carries a report alongside the error.
		var failed struct {
			Error  string         `json:"error"`
			Report *syncer.Report `json:"report"`
		}
		if jsonErr := json.Unmarshal(raw, &failed); jsonErr == nil && failed.Report != nil {
			return failed.Report, nil
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
	}
	var report syncer.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &report, nil
}

func runAudit() {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the audit database directly)")
	limit := fs.Int("limit", 20, "number of records")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := outputFormatFromFlag(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var records []*models.QALogRecord
	if *serverURL != "" {
		records, err = auditViaHTTP(*serverURL, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Audit failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, loadErr := loadConfig(*configPath)
		if loadErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", loadErr)
			os.Exit(1)
		}
		tracker, trackErr := audit.NewSQLiteTracker(cfg.Storage.AuditDBPath)
		if trackErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to open audit database: %v\n", trackErr)
			os.Exit(1)
		}
		defer tracker.Close()
		records, err = tracker.Recent(context.Background(), *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Audit failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteAuditRecords(os.Stdout, records, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func auditViaHTTP(serverURL string, limit int) ([]*models.QALogRecord, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/audit/recent?limit=%d", serverURL, limit))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Records []*models.QALogRecord `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Records, nil
}

func outputFormatFromFlag(value string) (cli.OutputFormat, error) {
	switch value {
	case "json":
		return cli.OutputJSON, nil
	case "text":
		return cli.OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", value)
	}
}

// Components holds initialized services.
type Components struct {
	Tracker   audit.Tracker
	Embedder  embedding.Embedder
	Generator llm.Generator
	Store     *vector.Store
	Indexer   *indexer.Indexer
	Syncer    *syncer.Syncer
	Composer  *answer.Composer
}

func (c *Components) Close() {
	if c.Tracker != nil {
		_ = c.Tracker.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	tracker, err := audit.NewSQLiteTracker(cfg.Storage.AuditDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit tracker: %w", err)
	}

	embedder, err := embedding.New(embedding.Config{
		Provider:   cfg.Embedding.Provider,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey(),
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout(),
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	generator, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey(),
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	store := vector.NewStore()
	if cfg.Storage.VectorSnapshotPath != "" {
		if loadErr := store.LoadSnapshot(cfg.Storage.VectorSnapshotPath, embedder.Dimensions()); loadErr != nil {
			logger.Warn("vector snapshot load skipped (run sync)",
				zap.String("path", cfg.Storage.VectorSnapshotPath), zap.Error(loadErr))
		}
	}

	idxOpts := []indexer.Option{indexer.WithSnapshotPath(cfg.Storage.VectorSnapshotPath)}
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(embedder, store, &cfg.Retrieval, extract.NewExtractor(), idxOpts...)

	syncOpts := []syncer.Option{}
	if debug {
		syncOpts = append(syncOpts, syncer.WithLogger(logger))
	}
	sync := syncer.NewSyncer(idx, tracker, syncOpts...)

	retrOpts := []retrieval.Option{}
	if debug {
		retrOpts = append(retrOpts, retrieval.WithLogger(logger))
	}
	retriever := retrieval.NewRetriever(embedder, store,
		cfg.Retrieval.TopK, cfg.Retrieval.CandidateMultiplier, retrOpts...)

	composer := answer.NewComposer(retriever, generator, tracker,
		cfg.Retrieval.ThresholdOrDefault(), cfg.LLM.TemperatureOrDefault(),
		answer.WithLogger(logger))

	return &Components{
		Tracker:   tracker,
		Embedder:  embedder,
		Generator: generator,
		Store:     store,
		Indexer:   idx,
		Syncer:    sync,
		Composer:  composer,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - Grounded Q&A over a local document knowledge base

Usage:
  kotae server [flags]            Start the HTTP server
  kotae ask [flags] <question>    Ask a question against the knowledge base
  kotae sync [flags]              Sync the index from the document manifest
  kotae audit [flags]             Show recent question/answer audit records
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (sync runs, retrieval scores, etc.)

Ask Flags:
  --config string        Config file path (for local mode)
  --server string        Server URL (default: http://localhost:8080). Use empty (--server "") to run the pipeline locally.
  --role string          Restrict retrieval to chunks visible to this role
  --k int                Number of chunks to retrieve (0 = configured default)
  --temperature float    Generation temperature (negative = configured default)
  --output string        Output format: text or json (default: text)

Sync Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (empty = run the pipeline locally; set to sync a running server's index)
  --manifest string  Manifest path (empty = configured default)
  --output string    Output format: text or json (default: text)
  Exits 1 when any document fails to index.

Audit Flags:
  --config string    Config file path (for direct database mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to read the audit database directly.
  --limit int        Number of records (default: 20)
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae ask "what is the refund window"
  kotae ask -role support how do I escalate
  kotae ask -output json "query"   # structured JSON for other apps
  kotae sync
  kotae sync -manifest ./docs.yaml -output json
  kotae audit -limit 50`)
}
