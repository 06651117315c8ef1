package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/shpitdev/monuments-pipeline/internal/app"
	"github.com/shpitdev/monuments-pipeline/internal/pipeline"
	"github.com/shpitdev/monuments-pipeline/internal/verify"
	"github.com/shpitdev/monuments-pipeline/internal/verify/gemini"
	"github.com/shpitdev/monuments-pipeline/internal/version"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/redact"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/rules"
)

func main() {
	ctx := context.Background()

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version":
		_, _ = fmt.Fprintln(os.Stdout, version.Current)
		return
	case "clean":
		os.Exit(runClean(ctx, os.Args[2:]))
	case "google-clean":
		os.Exit(runGoogleClean(ctx, os.Args[2:]))
	case "merge":
		os.Exit(runMerge(ctx, os.Args[2:]))
	case "verify":
		os.Exit(runVerify(ctx, os.Args[2:]))
	case "load-db":
		os.Exit(runLoadDB(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func configError(err error) int {
	_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
	return 2
}

func runFailed(cmd string, err error) int {
	_, _ = fmt.Fprintf(os.Stderr, "%s failed: %s\n", cmd, redact.Secrets(err.Error()))
	return 1
}

func loadRules(path string) (*rules.Rules, error) {
	r, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

func runClean(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inputPath := fs.String("input", "", "Raw site scrape (.json or .csv)")
	outputPath := fs.String("output", "", "Cleaned CSV output path")
	jsonPath := fs.String("json-output", "", "Optional cleaned JSON output path")
	reportPath := fs.String("report", "", "Optional report CSV path")
	rulesPath := fs.String("rules", os.Getenv("RULES_FILE"), "Rules YAML file; built-in defaults when empty (env: RULES_FILE)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" || *outputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "clean requires --input and --output")
		return 2
	}
	r, err := loadRules(*rulesPath)
	if err != nil {
		return configError(err)
	}

	if err := app.RunClean(ctx, app.CleanConfig{
		Input:      *inputPath,
		Output:     *outputPath,
		JSONOutput: *jsonPath,
		ReportPath: *reportPath,
		Rules:      r,
	}); err != nil {
		return runFailed("clean", err)
	}
	return 0
}

func runGoogleClean(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("google-clean", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	outputPath := fs.String("output", "", "Consolidated Google CSV output path")
	reportPath := fs.String("report", "", "Optional report CSV path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *outputPath == "" || fs.NArg() == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "google-clean requires --output and at least one input file")
		return 2
	}

	if err := app.RunGoogleClean(ctx, app.GoogleCleanConfig{
		Inputs:     fs.Args(),
		Output:     *outputPath,
		ReportPath: *reportPath,
	}); err != nil {
		return runFailed("google-clean", err)
	}
	return 0
}

func runMerge(ctx context.Context, args []string) int {
	pipeEnv, err := loadPipelineOptionsFromEnv()
	if err != nil {
		return configError(err)
	}

	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	englishPath := fs.String("english", "", "English monuments CSV (anchor rows)")
	frenchPath := fs.String("french", "", "French monuments CSV")
	googlePath := fs.String("google", "", "Consolidated Google Maps CSV")
	outputPath := fs.String("output", "", "Merged CSV output path")
	jsonPath := fs.String("json-output", "", "Optional merged JSON output path")
	reportPath := fs.String("report", "", "Optional report CSV path")
	redirectsPath := fs.String("redirects", "", "Optional redirect log output path")
	rulesPath := fs.String("rules", os.Getenv("RULES_FILE"), "Rules YAML file; built-in defaults when empty (env: RULES_FILE)")
	keepUnmatched := fs.Bool("keep-unmatched", false, "Keep anchors without a Google match in the output with empty Google fields")
	workers := fs.Int("workers", pipeEnv.Workers, "Number of concurrent matching workers (env: WORKERS)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *englishPath == "" || *frenchPath == "" || *googlePath == "" || *outputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "merge requires --english, --french, --google and --output")
		return 2
	}
	r, err := loadRules(*rulesPath)
	if err != nil {
		return configError(err)
	}

	opts := pipeEnv
	opts.Workers = *workers
	if err := app.RunMerge(ctx, app.MergeConfig{
		English:       *englishPath,
		French:        *frenchPath,
		Google:        *googlePath,
		Output:        *outputPath,
		JSONOutput:    *jsonPath,
		ReportPath:    *reportPath,
		RedirectsPath: *redirectsPath,
		Rules:         r,
		Options:       pipeline.ReconcileOptions{Options: opts, KeepUnmatched: *keepUnmatched},
	}); err != nil {
		return runFailed("merge", err)
	}
	return 0
}

func runVerify(ctx context.Context, args []string) int {
	pipeEnv, err := loadPipelineOptionsFromEnv()
	if err != nil {
		return configError(err)
	}
	gemEnv := loadGeminiConfigFromEnv()

	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inputPath := fs.String("input", "", "Resolved names CSV (input_name, wiki_name, lat, lon, ...)")
	referencePath := fs.String("reference", "", "Reference coordinates CSV (name, lat, lng)")
	redirectsPath := fs.String("redirects", "", "Redirect log from merge")
	outputPath := fs.String("output", "", "Verified CSV output path")
	reportPath := fs.String("report", "", "Optional report CSV path")
	thresholdKm := fs.Float64("threshold-km", verify.DefaultThresholdKm, "Largest accepted distance to the reference point")
	useLLM := fs.Bool("llm", gemEnv.APIKey != "", "Ask Gemini about rows without coordinates (default on when GEMINI_API_KEY is set)")
	workers := fs.Int("workers", pipeEnv.Workers, "Number of concurrent verification workers (env: WORKERS)")
	maxRetries := fs.Int("max-retries", pipeEnv.MaxRetries, "Max retries per row for transient failures (env: MAX_RETRIES)")
	requestTimeout := fs.Duration("request-timeout", pipeEnv.RequestTimeout, "Per-request timeout (env: REQUEST_TIMEOUT)")
	rateLimitRPS := fs.Float64("rate-limit-rps", envRateLimit(pipeEnv.RateLimitRPS), "Global request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	failFast := fs.Bool("fail-fast", pipeEnv.FailFast, "Fail fast on first verification error (env: FAIL_FAST)")
	geminiModel := fs.String("gemini-model", gemEnv.Model, "Gemini model name (env: GEMINI_MODEL)")
	geminiBaseURL := fs.String("gemini-base-url", gemEnv.BaseURL, "Gemini API base URL override (env: GEMINI_BASE_URL)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" || *referencePath == "" || *redirectsPath == "" || *outputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "verify requires --input, --reference, --redirects and --output")
		return 2
	}

	cfg := app.VerifyConfig{
		Input:       *inputPath,
		Reference:   *referencePath,
		Redirects:   *redirectsPath,
		Output:      *outputPath,
		ReportPath:  *reportPath,
		ThresholdKm: *thresholdKm,
		Options: pipeline.Options{
			Workers:        *workers,
			MaxRetries:     *maxRetries,
			RequestTimeout: *requestTimeout,
			RateLimitRPS:   *rateLimitRPS,
			FailFast:       *failFast,
		},
	}
	if *useLLM {
		v, err := gemini.New(ctx, gemini.Config{
			APIKey:  gemEnv.APIKey,
			Model:   *geminiModel,
			BaseURL: *geminiBaseURL,
		})
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "gemini config error: %s\n", redact.Secrets(err.Error()))
			return 2
		}
		cfg.Verifier = v
	}

	if err := app.RunVerify(ctx, cfg); err != nil {
		return runFailed("verify", err)
	}
	return 0
}

func runLoadDB(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("load-db", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inputPath := fs.String("input", "", "Merged monuments CSV")
	wikiPath := fs.String("wiki", "", "Optional verified wiki CSV")
	dbPath := fs.String("db", "monuments.db", "SQLite database path (replaced if present)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "load-db requires --input")
		return 2
	}

	if err := app.RunLoadDB(ctx, app.LoadDBConfig{
		Input:  *inputPath,
		Wiki:   *wikiPath,
		DBPath: *dbPath,
	}); err != nil {
		return runFailed("load-db", err)
	}
	return 0
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `monuments: French monuments cleaning, matching and enrichment pipeline

Usage:
  monuments <command> [flags]

Commands:
  clean         Clean a raw site scrape and drop rows missing required fields
  google-clean  Consolidate Google Maps exports into one row per place
  merge         Match English rows to Google places and merge French/Google fields
  verify        Check resolved names against reference coordinates (and Gemini)
  load-db       Load merged rows into SQLite with reporting views
  version       Print the version

Examples:
  monuments clean --input raw.json --output clean.csv --report clean_report.csv
  monuments google-clean --output google.csv export1.csv export2.csv
  monuments merge --english en.csv --french fr.csv --google google.csv --output merged.csv --redirects redirects.txt
  monuments verify --input wiki.csv --reference coords.csv --redirects redirects.txt --output wiki_verified.csv
  monuments load-db --input merged.csv --wiki wiki_verified.csv --db monuments.db

Environment:
  RULES_FILE       Rules YAML (stopwords, payment table, thresholds)
  WORKERS          Worker count (default 10)
  MAX_RETRIES      Retries for transient failures (default 3)
  REQUEST_TIMEOUT  Per-request timeout (default 30s)
  RATE_LIMIT_RPS   Global request rate limit for verify (default 0.25)
  FAIL_FAST        Stop on the first row error

Environment (Gemini):
  GEMINI_API_KEY   Gemini API key (enables verify --llm)
  GEMINI_MODEL     Gemini model name (default %s)
  GEMINI_BASE_URL  Optional base URL override (proxies/testing)

A .env file in the working directory is loaded first.
`, gemini.DefaultModel)
}

// defaultVerifyRPS keeps free-tier Gemini quotas happy: one request every four seconds.
const defaultVerifyRPS = 0.25

// envRateLimit applies the verify default when RATE_LIMIT_RPS is unset.
func envRateLimit(fromEnv float64) float64 {
	if strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")) == "" {
		return defaultVerifyRPS
	}
	return fromEnv
}

func loadGeminiConfigFromEnv() gemini.Config {
	return gemini.Config{
		APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:   strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		BaseURL: strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
	}
}

func loadPipelineOptionsFromEnv() (pipeline.Options, error) {
	workers, err := envInt("WORKERS", 10)
	if err != nil {
		return pipeline.Options{}, err
	}
	maxRetries, err := envInt("MAX_RETRIES", 3)
	if err != nil {
		return pipeline.Options{}, err
	}
	requestTimeout, err := envDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return pipeline.Options{}, err
	}
	failFast, err := envBool("FAIL_FAST")
	if err != nil {
		return pipeline.Options{}, err
	}
	rateLimitRPS, err := envFloat("RATE_LIMIT_RPS", 0)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Workers:        workers,
		MaxRetries:     maxRetries,
		RequestTimeout: requestTimeout,
		RateLimitRPS:   rateLimitRPS,
		FailFast:       failFast,
	}, nil
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(varName string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return false, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
