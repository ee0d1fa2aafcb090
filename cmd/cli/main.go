package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finance-combiner/internal/categorize"
	"github.com/dvloznov/finance-combiner/internal/config"
	"github.com/dvloznov/finance-combiner/internal/decode"
	infraBQ "github.com/dvloznov/finance-combiner/internal/infra/bigquery"
	"github.com/dvloznov/finance-combiner/internal/logger"
	"github.com/dvloznov/finance-combiner/internal/pipeline"
	"github.com/dvloznov/finance-combiner/internal/storage"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runPipeline(log)
	case "merge":
		runMerge(log)
	case "summarize":
		runSummarize(log)
	case "detect":
		runDetect(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Combiner CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run        Normalize the exports, merge them into the history and write summaries")
	fmt.Println("  merge      Merge the combined interchange file into the history")
	fmt.Println("  summarize  Rebuild the monthly summaries from the history")
	fmt.Println("  detect     Print the detected encoding and delimiter of a file")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nConfiguration is read from --config or FINTRACK_CONFIG (TOML) and FINTRACK_* env vars.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

// commonFlags are the flags shared by the commands that run a pipeline.
type commonFlags struct {
	configPath  *string
	history     *string
	output      *string
	interchange *string
	breakdown   *string
	monthly     *string
	policy      *string
	logLevel    *string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath:  fs.String("config", "", "Path to the TOML config file"),
		history:     fs.String("history", "", "Consolidated history path (local or gs://)"),
		output:      fs.String("output", "", "Where to write the new history (defaults to -history)"),
		interchange: fs.String("interchange", "", "Combined batch interchange path"),
		breakdown:   fs.String("breakdown", "", "Category breakdown output path"),
		monthly:     fs.String("monthly", "", "Monthly totals output path"),
		policy:      fs.String("policy", "", "Merge policy: history_wins or new_wins"),
		logLevel:    fs.String("log-level", "", "Log level (debug, info, warn, error)"),
	}
}

// load reads the config and applies the flags that were set.
func (f *commonFlags) load(log zerolog.Logger) (config.Config, zerolog.Logger) {
	cfg, err := config.Load(*f.configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	override(&cfg.HistoryPath, *f.history)
	override(&cfg.OutputPath, *f.output)
	override(&cfg.InterchangePath, *f.interchange)
	override(&cfg.BreakdownPath, *f.breakdown)
	override(&cfg.MonthlyPath, *f.monthly)
	override(&cfg.MergePolicy, *f.policy)
	override(&cfg.Log.Level, *f.logLevel)
	if *f.history != "" && *f.output == "" {
		cfg.OutputPath = cfg.HistoryPath
	}
	return cfg, logger.NewWithLevel(cfg.Log.Level, cfg.Log.JSON)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func runPipeline(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	common := registerCommon(fs)
	bank := fs.String("bank", "", "Bank account export")
	card := fs.String("card", "", "Credit card export")
	payment := fs.String("payment", "", "Payment service export (optional)")
	fs.Parse(os.Args[2:])

	cfg, log := common.load(log)
	override(&cfg.BankPath, *bank)
	override(&cfg.CreditCardPath, *card)
	override(&cfg.PaymentServicePath, *payment)

	execute(log, cfg, pipeline.Run)
}

func runMerge(log zerolog.Logger) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	common := registerCommon(fs)
	fs.Parse(os.Args[2:])

	cfg, log := common.load(log)
	execute(log, cfg, pipeline.RunMerge)
}

func runSummarize(log zerolog.Logger) {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	common := registerCommon(fs)
	fs.Parse(os.Args[2:])

	cfg, log := common.load(log)
	// Summaries never touch the warehouse or the model.
	cfg.BigQuery.Enabled = false
	cfg.Categorize = config.CategorizeConfig{}
	execute(log, cfg, pipeline.RunSummarize)
}

type runFunc func(ctx context.Context, cfg config.Config, deps pipeline.Deps) (*pipeline.Report, error)

func execute(log zerolog.Logger, cfg config.Config, run runFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout(cfg))
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up dependencies")
	}
	defer cleanup()

	report, err := run(ctx, cfg, deps)
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Msg("Run failed")
	}

	fmt.Printf("Run %s completed: %d combined, %d in history (%d duplicates dropped), %d summary rows.\n",
		report.RunID, report.Combined, report.HistoryOut, report.Duplicates, report.Buckets)
	for _, p := range report.Written {
		fmt.Printf("  wrote %s\n", p)
	}
	if report.Exported {
		fmt.Printf("  loaded history into %s.%s.%s\n", cfg.GCP.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
	}
}

func runTimeout(cfg config.Config) time.Duration {
	if cfg.Timeout <= 0 {
		return 5 * time.Minute
	}
	return cfg.Timeout
}

// buildDeps creates the clients a run needs. Cloud clients are only created
// when the config asks for them.
func buildDeps(ctx context.Context, cfg config.Config) (pipeline.Deps, func(), error) {
	log := logger.FromContext(ctx)
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
		closers = nil
	}

	router := &storage.Router{Local: storage.Local{}}
	if usesGCS(cfg) {
		gcs, err := storage.NewGCS(ctx, cfg.GCP.CredentialsFile)
		if err != nil {
			return pipeline.Deps{}, cleanup, err
		}
		closers = append(closers, gcs.Close)
		router.Remote = gcs
	}

	deps := pipeline.Deps{Store: router, Detector: decode.NewChardetDetector()}

	var chain categorize.Chain
	if len(cfg.Categorize.Rules) > 0 {
		rules := make([]categorize.Rule, 0, len(cfg.Categorize.Rules))
		for _, r := range cfg.Categorize.Rules {
			rules = append(rules, categorize.Rule{Category: r.Category, Keywords: r.Keywords})
		}
		chain = append(chain, categorize.NewRuleCategorizer(rules))
	}
	if g := cfg.Categorize.Gemini; g.Enabled {
		gemini, err := categorize.NewGeminiCategorizer(ctx, g.Model, g.Categories)
		if err != nil {
			// Categorization is an enrichment; run without it.
			log.Warn().Err(err).Msg("Gemini categorizer unavailable")
		} else {
			chain = append(chain, gemini)
		}
	}
	if len(chain) > 0 {
		deps.Categorizer = chain
	}

	if cfg.BigQuery.Enabled {
		exporter, err := infraBQ.NewBigQueryHistoryExporter(ctx, cfg.GCP.ProjectID, cfg.GCP.CredentialsFile, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
		if err != nil {
			cleanup()
			return pipeline.Deps{}, func() {}, err
		}
		closers = append(closers, exporter.Close)
		deps.Exporter = exporter
	}

	return deps, cleanup, nil
}

func usesGCS(cfg config.Config) bool {
	for _, p := range []string{
		cfg.BankPath, cfg.CreditCardPath, cfg.PaymentServicePath,
		cfg.HistoryPath, cfg.OutputPath, cfg.InterchangePath,
		cfg.BreakdownPath, cfg.MonthlyPath,
	} {
		if storage.IsGCSURI(p) {
			return true
		}
	}
	return false
}

func runDetect(log zerolog.Logger) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the TOML config file")
	file := fs.String("file", "", "File to inspect (local or gs://)")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Usage: cli detect -file PATH")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout(cfg))
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	deps, cleanup, err := buildDeps(ctx, config.Config{BankPath: *file, GCP: cfg.GCP})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up storage")
	}
	defer cleanup()

	data, err := deps.Store.Read(ctx, *file)
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	dec, err := decode.Sniff(ctx, deps.Detector, *file, data, decode.Options{SampleSize: cfg.SampleSize})
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Msg("Failed to decode file")
	}

	fmt.Printf("%s: encoding=%s delimiter=%q\n", storage.BaseName(*file), dec.Dialect.Encoding, dec.Dialect.Delimiter)
}
