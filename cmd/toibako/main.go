// Package main is the Toibako CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kyozai/toibako/internal/cli"
	"github.com/kyozai/toibako/internal/config"
	"github.com/kyozai/toibako/internal/importer"
	"github.com/kyozai/toibako/internal/models"
	"github.com/kyozai/toibako/internal/search"
	"github.com/kyozai/toibako/internal/server"
	"github.com/kyozai/toibako/internal/storage"
	"github.com/kyozai/toibako/internal/watcher"
	"github.com/kyozai/toibako/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/toibako/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists it
// is used, so that "toibako server" from the project dir uses the project's
// config (including debug). Returns the config and the path actually loaded.
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "import":
		runImport()
	case "suggest":
		runSuggest()
	case "filters":
		runFilters()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("toibako version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services for direct (non-HTTP) commands.
type Components struct {
	Storage  storage.Storage
	Service  *search.Service
	Importer *importer.Importer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	service := search.NewService(store, &cfg.Search, logger)
	imp := importer.NewImporter(store, logger)
	return &Components{Storage: store, Service: service, Importer: imp}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (searches, imports, watched files)")
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watch *watcher.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Import.Directories) > 0 {
		imp := components.Importer
		watch = watcher.New(
			cfg.Import.Directories,
			cfg.Import.Extensions,
			cfg.Import.RecursiveOrDefault(),
			func(path string) {
				if _, err := imp.ImportFile(context.Background(), path); err != nil {
					logger.Warn("watch import failed", zap.String("path", path), zap.Error(err))
				}
			},
			logger,
		)
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start import watcher", zap.Error(err))
		}
		watch.SyncExisting()
	}

	srv := server.NewServer(
		components.Service,
		components.Importer,
		components.Storage,
		watch,
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
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQueryText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
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

func parseFormat(raw string) (cli.OutputFormat, error) {
	switch raw {
	case "json":
		return cli.OutputJSON, nil
	case "text":
		return cli.OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", raw)
	}
}

func runSearch() {
	searchArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = use direct storage when server is not running)`)
	limit := fs.Int("limit", 0, "number of results (0 = server default)")
	offset := fs.Int("offset", 0, "result offset for pagination")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	caseSensitive := fs.Bool("case-sensitive", false, "match case exactly")
	sortBy := fs.String("sort", "", "sort key: relevance, date, or difficulty")
	subject := fs.String("subject", "", "filter by subject name")
	grade := fs.String("grade", "", "filter by grade name")
	topic := fs.String("topic", "", "filter by topic name")
	difficulty := fs.String("difficulty", "", "filter by difficulty level")
	tags := fs.String("tags", "", "comma-separated tags the question must carry")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgs)

	queryText := buildQueryText(fs.Args())
	if queryText == "" {
		fmt.Println("Usage: toibako search [flags] <query>")
		os.Exit(1)
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	query := &models.SearchQuery{
		Text:          queryText,
		Fuzzy:         *fuzzy,
		CaseSensitive: *caseSensitive,
		Limit:         *limit,
		Offset:        *offset,
		SortBy:        *sortBy,
		Filters: models.Filters{
			Subject:         *subject,
			Grade:           *grade,
			Topic:           *topic,
			DifficultyLevel: *difficulty,
			Tags:            splitTags(*tags),
		},
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, query)
	} else {
		response, err = searchDirect(*configPath, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResponse(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func searchDirect(configPath string, query *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Service.Search(context.Background(), query)
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toibako import [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	var report *importer.Report
	if info.IsDir() {
		report, err = components.Importer.ImportDirectory(ctx, path, cfg.Import.Extensions)
	} else {
		report, err = components.Importer.ImportFile(ctx, path)
	}
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d question(s) from %d file(s), skipped %d (batch %s)\n",
		report.Imported, report.Files, report.Skipped, report.BatchID)
}

func runSuggest() {
	suggestArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	limit := fs.Int("limit", 10, "number of suggestions")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(suggestArgs)

	partial := buildQueryText(fs.Args())
	if partial == "" {
		fmt.Println("Usage: toibako suggest [flags] <partial-query>")
		os.Exit(1)
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	endpoint := fmt.Sprintf("%s/api/v1/search/suggestions?q=%s&limit=%d",
		*serverURL, url.QueryEscape(partial), *limit)
	resp, err := http.Get(endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSuggestions(os.Stdout, out.Suggestions, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runFilters() {
	fs := flag.NewFlagSet("filters", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	resp, err := http.Get(*serverURL + "/api/v1/filter/options")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var options models.FilterOptions
	if err := json.NewDecoder(resp.Body).Decode(&options); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFilterOptions(os.Stdout, &options, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Questions         int64    `json:"questions"`
	FTSEnabled        bool     `json:"fts_enabled"`
	HistorySize       int      `json:"history_size"`
	DatabaseSizeBytes *int64   `json:"database_size_bytes,omitempty"`
	ImportDirectories []string `json:"import_directories,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = use direct storage)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		count, err := components.Storage.CountQuestions(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count questions failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Questions:   count,
			FTSEnabled:  components.Storage.HasFTS(),
			HistorySize: cfg.Search.HistorySize,
		}
		if bytes, err := storage.DatabaseSizeBytes(cfg.Storage.DatabasePath); err == nil {
			status.DatabaseSizeBytes = &bytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("questions:      %d\n", status.Questions)
		fmt.Printf("fts_enabled:    %t\n", status.FTSEnabled)
		fmt.Printf("history_size:   %d\n", status.HistorySize)
		if status.DatabaseSizeBytes != nil {
			fmt.Printf("database_bytes: %d\n", *status.DatabaseSizeBytes)
		}
		for _, dir := range status.ImportDirectories {
			fmt.Printf("import_dir:     %s\n", dir)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`toibako - Question bank search service

Usage:
  toibako server [flags]            Start the HTTP server
  toibako search [flags] <query>    Search questions
  toibako import [flags] <path>     Import questions from a JSON file or directory
  toibako suggest [flags] <text>    Autocomplete suggestions for a partial query
  toibako filters [flags]           List available filter values
  toibako status [flags]            Show question-bank status
  toibako version                   Show version
  toibako help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/toibako/config.yaml)
  --debug            Enable debug logging (searches, imports, watched files)

Search Flags:
  --config string      Config file path (for direct storage mode)
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --limit int          Number of results
  --offset int         Result offset for pagination
  --fuzzy              Typo-tolerant matching
  --case-sensitive     Match case exactly
  --sort string        Sort key: relevance, date, or difficulty
  --subject string     Filter by subject name (includes descendants)
  --grade string       Filter by grade name
  --topic string       Filter by topic name
  --difficulty string  Filter by difficulty level
  --tags string        Comma-separated tags the question must carry
  --output string      Output format: text or json (default: text)

Examples:
  toibako server
  toibako search quadratic equation
  toibako search --fuzzy quadratik
  toibako search --subject Math --difficulty easy fractions
  toibako search --output json "triangle inequality"
  toibako import questions/algebra.json
  toibako import --config ./config.yaml ./questions/
  toibako suggest quad
  toibako filters
  toibako status --output json`)
}
