package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"

	"pricelist/internal"
	"pricelist/internal/config"
	"pricelist/internal/connectors"
	gmailconnector "pricelist/internal/connectors/gmail"
	imapconnector "pricelist/internal/connectors/imap"
	"pricelist/internal/listener"
	"pricelist/internal/logging"
	"pricelist/internal/pipeline"
	"pricelist/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	engine := pipeline.NewEngine(logger, pipeline.WithMaxFileSize(cfg.MaxFileBytes()))

	cmd := os.Args[1]
	switch cmd {
	case "extract":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "pricelist file (.xlsx, .xls, .csv)")
		out := fs.String("out", "", "optional xlsx export path")
		asJSON := fs.Bool("json", false, "print the full result as JSON")
		record := fs.Bool("record", false, "store the run in the ledger")
		supplier := fs.String("supplier", "", "supplier id")
		currencyCode := fs.String("currency", "", "default currency code")
		strict := fs.Bool("strict", cfg.ExtractStrictMode, "strict validation")
		skipInvalid := fs.Bool("skip-invalid", cfg.ExtractSkipInvalidRows, "drop rows without a usable price")
		maxRows := fs.Int("max-rows", cfg.ExtractMaxRows, "stop after n rows (0 = all)")
		mappings := map[internal.Field]string{}
		fs.Func("map", "explicit column mapping field=Header (repeatable)", func(v string) error {
			return parseMapping(v, mappings)
		})
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		ecfg := cfg.Extraction()
		ecfg.SupplierID = *supplier
		if *currencyCode != "" {
			ecfg.DefaultCurrency = *currencyCode
		}
		ecfg.StrictMode = *strict
		ecfg.SkipInvalidRows = *skipInvalid
		ecfg.MaxRows = *maxRows
		if len(mappings) > 0 {
			ecfg.ColumnMappings = mappings
		}

		result, err := engine.ExtractFile(*input, ecfg)
		must(err)

		if *record {
			db := openDB(cfg)
			runID, err := db.InsertRun(result, nil, filepath.Base(*input))
			db.Close()
			must(err)
			logger.Info("run recorded", "run_id", runID)
		}
		if *out != "" && len(result.Rows) > 0 {
			must(pipeline.ExportRowsToXLSX(result.Rows, *out))
		}

		if *asJSON {
			printJSON(result)
		} else {
			printSummary(result)
		}
		if !result.Success {
			os.Exit(2)
		}
	case "validate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "file to check")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		content, err := os.ReadFile(*input)
		must(err)
		check := engine.ValidateFile(content, filepath.Base(*input))
		printJSON(check)
		if !check.Valid {
			os.Exit(2)
		}
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		runs, err := db.ListRuns(*limit)
		must(err)
		printRuns(runs)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.String("run", "", "run id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*runID) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--run and --out are required"))
		}
		db := openDB(cfg)
		defer db.Close()
		rows, err := db.GetRunRows(*runID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no rows for run %s", *runID))
		}
		must(pipeline.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		ctx := context.Background()
		conn, err := makeConnector(ctx, cfg, *provider, logger)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, logger)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d\n", *provider, result.Fetched, result.Stored, result.Known)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap (empty = all)")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		processor := pipeline.NewProcessingService(db, engine, cfg.Extraction(), logger,
			pipeline.WithWorkers(cfg.ProcessWorkers),
			pipeline.WithRetry(cfg.ProcessMaxAttempts, cfg.ProcessRetryBackoff()),
		)
		if strings.TrimSpace(*messageID) != "" {
			if *provider == "" {
				must(fmt.Errorf("--provider is required with --messageId"))
			}
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("email id=%d status=%s runs=%d valid_rows=%d\n", res.EmailID, res.Status, len(res.RunIDs), res.ValidRows)
			return
		}
		results, err := processor.ProcessPending(context.Background(), *batch, *provider)
		must(err)
		runs, failed := 0, 0
		for _, r := range results {
			runs += len(r.RunIDs)
			if r.Err != nil {
				failed++
				fmt.Printf("email id=%d failed: %v\n", r.EmailID, r.Err)
			}
		}
		fmt.Printf("processed pending emails=%d runs=%d failed=%d\n", len(results), runs, failed)
	case "mail:listen":
		db := openDB(cfg)
		defer db.Close()
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(listener.NewService(db, cfg, logger).Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

// parseMapping reads one field=Header pair, e.g. price=Dealer Price.
func parseMapping(v string, into map[internal.Field]string) error {
	name, header, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(header) == "" {
		return fmt.Errorf("expected field=Header, got %q", v)
	}
	f, ok := internal.ParseField(name)
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	into[f] = strings.TrimSpace(header)
	return nil
}

func openDB(cfg config.Config) *storage.DB {
	db, err := storage.Open(cfg.DBPath)
	must(err)
	return db
}

func makeConnector(ctx context.Context, cfg config.Config, provider string, logger *slog.Logger) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg, logger)
	case "imap":
		return imapconnector.NewConnector(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	must(enc.Encode(v))
}

func printSummary(result internal.ExtractionResult) {
	m := result.Metadata
	fmt.Printf("file=%s type=%s success=%t\n", m.FileName, m.FileType, result.Success)
	fmt.Printf("rows=%d valid=%d invalid=%d confidence=%.2f currency=%s\n",
		m.TotalRows, m.ValidRows, m.InvalidRows, m.ExtractionConfidence, m.DetectedCurrency.Currency)
	if m.DuplicateSKUs > 0 {
		fmt.Printf("duplicate_skus=%d\n", m.DuplicateSKUs)
	}
	if m.DetectedBrand.Brand != nil {
		fmt.Printf("brand=%s (%s, %.2f)\n", *m.DetectedBrand.Brand, m.DetectedBrand.Source, m.DetectedBrand.Confidence)
	}
	for _, e := range result.Errors {
		fmt.Printf("error [%s] %s\n", e.Type, e.Message)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning [%s/%s] %s\n", w.Type, w.Severity, w.Message)
	}
}

func printRuns(runs []internal.RunSummary) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run", "Source", "Type", "OK", "Confidence", "Rows", "Valid", "Created"})
	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.SourceName,
			r.FileType,
			strconv.FormatBool(r.Success),
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			strconv.Itoa(r.TotalRows),
			strconv.Itoa(r.ValidRows),
			r.CreatedAt,
		})
	}
	table.Render()
}

func usage() {
	fmt.Println("usage: pricelist <command>")
	fmt.Println("commands:")
	fmt.Println("  extract --input=file.xlsx [--out=rows.xlsx] [--json] [--record] [--supplier=id] [--map=price=Cost]")
	fmt.Println("  validate --input=file.xlsx")
	fmt.Println("  runs:list [--limit=20]")
	fmt.Println("  export:xlsx --run=<id> --out=./out/run.xlsx")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
