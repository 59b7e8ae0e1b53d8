package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/willibrandon/mtlog/core"

	"github.com/Geun-Oh/elbfilter/internal/monitor"
	"github.com/Geun-Oh/elbfilter/internal/pipeline"
	"github.com/Geun-Oh/elbfilter/internal/source"
)

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run [files...]",
		Short: "Process local files, stdin or the configured S3 keys",
		Long: `Process access logs through every configured pipeline.

Files may be plain or gzipped; "-" reads stdin. Without arguments the
bucket_keys of the configured bucket are downloaded from S3.`,
		Example: `  elbfilter run -c elbfilter.yaml access.log.gz
  zcat *.log.gz | elbfilter run -c elbfilter.yaml -
  BUCKET_KEYS=AWSLogs/1/a.log.gz elbfilter run -c elbfilter.yaml --bucket alb-logs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiles(cmd, opts, args)
		},
	}
}

func runFiles(cmd *cobra.Command, opts *options, args []string) (err error) {
	a, err := prepare(cmd, opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	fromS3 := len(args) == 0
	if fromS3 && len(a.cfg.BucketKeys) == 0 {
		return errors.New("nothing to process: pass files, - for stdin, or set bucket_keys")
	}
	if fromS3 && a.cfg.BucketName == "" {
		return errors.New("bucket_name is required to process bucket_keys")
	}

	cl, err := a.newClients(ctx, fromS3)
	if err != nil {
		return err
	}

	var sources []source.Source
	if fromS3 {
		for _, key := range a.cfg.BucketKeys {
			sources = append(sources, source.NewS3Source(cl.s3, a.cfg.BucketName, key, a.log))
		}
	} else {
		for _, arg := range args {
			if arg == "-" {
				sources = append(sources, source.NewStdinSource())
				continue
			}
			sources = append(sources, source.NewFileSource(arg))
		}
	}

	reg, err := pipeline.NewRegistry(a.compiled, pipeline.BuildSink, a.sinkEnv(cl))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := reg.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if addr := a.cfg.Metrics.Addr; addr != "" {
		stop := serveMetrics(a, addr)
		defer stop()
	}

	stats := monitor.NewStats()
	for _, src := range sources {
		sum, err := processSource(ctx, src, reg, a.log)
		stats.Add(sum.TotalLines, sum.MatchedLines, sum.DecodeErrors)
		if err != nil {
			return err
		}
	}

	// Close here so final flush failures are reported before the summary.
	if err := reg.Close(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stderr, stats.Summary())
	return nil
}

// processSource runs one input through the registry.
func processSource(ctx context.Context, src source.Source, reg *pipeline.Registry, log core.Logger) (pipeline.Summary, error) {
	log.Information("Processing {Source}", src.Name())
	rc, err := src.Open(ctx)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer rc.Close()

	sum, err := pipeline.Process(ctx, rc, reg)
	if err != nil {
		return sum, fmt.Errorf("%s: %w", src.Name(), err)
	}
	log.Information("Processed {Source}: {TotalLines} lines, {MatchedLines} matches, {DecodeErrors} skipped",
		src.Name(), sum.TotalLines, sum.MatchedLines, sum.DecodeErrors)
	return sum, nil
}

// serveMetrics exposes the run's metrics until the returned func is
// called.
func serveMetrics(a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitor.Handler(a.registry))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.log.Information("Serving metrics on {Addr}", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Metrics server stopped: {Error}", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.log.Warning("Metrics server shutdown: {Error}", err)
		}
	}
}
