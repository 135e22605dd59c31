// Command pdtcore runs the photodynamic-therapy data pipeline end to end:
// validate and upload the experiment CSV files, refresh and merge the
// warehouse tables, analyze one experiment, and print the plot partitions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pdtcore/internal/blob"
	"pdtcore/internal/blob/core"
	"pdtcore/internal/blob/s3"
	"pdtcore/internal/config"
	"pdtcore/internal/ingest"
	"pdtcore/internal/observability"
	"pdtcore/internal/pipeline"
	"pdtcore/internal/warehouse"
	"pdtcore/pkg/domain"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to the YAML config file (defaults apply when empty)")
		experiment  = flag.Int("experiment", 0, "experiment number to analyze (required)")
		filterKind  = flag.String("filter", "drug", "plot filter dimension: drug or cell_line")
		filterValue = flag.String("selected", "", "drug or cell line name to plot (required)")
		xColumn     = flag.String("x", "", "plot x column (default drug_concentration)")
		yColumn     = flag.String("y", "", "plot y column (default survival_rate)")
		metricsAddr = flag.String("metrics-addr", "", "serve prometheus metrics on this address (optional)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] file.csv...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *experiment == 0 || *filterValue == "" {
		fmt.Fprintln(os.Stderr, "-experiment and -selected are required")
		os.Exit(2)
	}
	filter := domain.FilterType(*filterKind)
	if filter != domain.FilterDrug && filter != domain.FilterCellLine {
		fmt.Fprintf(os.Stderr, "unknown -filter %q\n", *filterKind)
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal("load config", zap.Error(err))
		}
	}

	ctx := context.Background()
	if err := run(ctx, log, cfg, flag.Args(), *experiment, filter, *filterValue, *xColumn, *yColumn, *metricsAddr); err != nil {
		log.Fatal("pipeline failed", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.Logger, cfg *config.Config, paths []string,
	experiment int, filter domain.FilterType, selected, xColumn, yColumn, metricsAddr string) error {
	files, err := readFiles(paths)
	if err != nil {
		return err
	}

	exec, err := warehouse.Open(ctx, warehouse.Driver(cfg.Warehouse.Driver), cfg.Warehouse.DSN)
	if err != nil {
		return fmt.Errorf("open warehouse: %w", err)
	}
	defer func() { _ = exec.Close() }()

	store, err := blob.Open(ctx, blob.Options{
		Driver: core.Driver(cfg.Blob.Driver),
		FSRoot: cfg.Blob.FSRoot,
		S3: s3.Config{
			Region:          cfg.Blob.S3Region,
			Bucket:          cfg.Blob.S3Bucket,
			Endpoint:        cfg.Blob.S3Endpoint,
			AccessKeyID:     cfg.Blob.AccessKeyID,
			SecretAccessKey: cfg.Blob.SecretAccessKey,
			SessionToken:    cfg.Blob.SessionToken,
			PathStyle:       cfg.Blob.S3PathStyle,
		},
	})
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	var metrics observability.Recorder = observability.Noop{}
	if metricsAddr != "" {
		recorder, err := observability.NewPrometheusRecorder(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		metrics = recorder
		go func() {
			if err := http.ListenAndServe(metricsAddr, promhttp.Handler()); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	settle := ingest.FixedDelay{Interval: cfg.SettleInterval()}
	p := pipeline.New(store, exec, settle, log, metrics)
	log.Info("session started", zap.String("session", p.SessionID()))

	report, err := p.UploadFiles(ctx, files)
	for _, rejection := range report.Rejections {
		fmt.Fprintln(os.Stderr, "rejected:", rejection.String())
	}
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	for _, key := range report.Keys {
		fmt.Println("stored:", key)
	}

	results, err := p.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	for table, result := range results {
		if result.Err != nil {
			fmt.Fprintf(os.Stderr, "table %s not refreshed: %v\n", table, result.Err)
			continue
		}
		fmt.Printf("table %s: %d rows staged\n", table, len(result.Rows))
	}

	if err := p.Merge(ctx); err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	rows, err := p.SelectExperiment(ctx, experiment)
	if err != nil {
		return fmt.Errorf("select experiment: %w", err)
	}
	fmt.Printf("experiment %d: %d rows\n", experiment, len(rows))

	analysis, err := p.Analyze()
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	for _, baseline := range analysis.Baselines {
		fmt.Printf("baseline %s: %.2f\n", baseline.Key, baseline.Mean)
	}
	for _, miss := range analysis.Misses {
		fmt.Fprintln(os.Stderr, "skipped:", miss.Error())
	}

	partitions, err := p.PreparePlots(filter, selected, xColumn, yColumn)
	if err != nil {
		return fmt.Errorf("prepare plots: %w", err)
	}
	if len(partitions) == 0 {
		fmt.Printf("no rows match %s %q\n", filter, selected)
		return nil
	}
	for _, partition := range partitions {
		fmt.Printf("plot %q: %d rows, x=%s y=%s color=%s\n",
			partition.Title, len(partition.Rows), partition.XColumn, partition.YColumn, partition.ColorColumn)
	}
	return nil
}

// readFiles loads each path into an upload keyed by its base name; the
// validator matches on file names, not paths.
func readFiles(paths []string) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("file %s does not exist", path)
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, domain.UploadedFile{Name: filepath.Base(path), Content: content})
	}
	return files, nil
}
