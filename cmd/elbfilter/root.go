package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/willibrandon/mtlog/core"

	"github.com/Geun-Oh/elbfilter/internal/config"
	"github.com/Geun-Oh/elbfilter/internal/filter"
	"github.com/Geun-Oh/elbfilter/internal/logging"
	"github.com/Geun-Oh/elbfilter/internal/monitor"
	"github.com/Geun-Oh/elbfilter/internal/pipeline"
	"github.com/Geun-Oh/elbfilter/internal/sink"
	"github.com/Geun-Oh/elbfilter/internal/source"
)

// envInsideLambda makes the bare command start the Lambda handler.
const envInsideLambda = "INSIDE_LAMBDA"

// options are the flags shared by every subcommand.
type options struct {
	configPath  string
	logLevel    string
	metricsAddr string
	bucket      string
	region      string
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "path to the YAML configuration file")
	fs.StringVarP(&o.logLevel, "log-level", "l", "", "minimum log level (verbose, debug, info, warn, error)")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	fs.StringVarP(&o.bucket, "bucket", "b", "", "S3 bucket holding the access logs")
	fs.StringVar(&o.region, "region", "", "AWS region")
}

// apply overrides cfg with the flags set on the command line.
func (o *options) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if fs.Changed("bucket") {
		cfg.BucketName = o.bucket
	}
	if fs.Changed("region") {
		cfg.AWSRegion = o.region
	}
}

// app is everything built at startup: configuration, logger and compiled
// pipelines. Nothing in it changes while records are processed.
type app struct {
	cfg      *config.Config
	log      core.Logger
	compiled []pipeline.Compiled
	registry *prometheus.Registry
	metrics  *monitor.Metrics
	stdout   io.Writer
	stderr   io.Writer
}

// prepare loads the configuration and compiles every pipeline. It fails
// before any input is opened if a filter does not compile.
func prepare(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	opts.apply(cmd.Flags(), cfg)
	if err := cfg.ResolvePipelines(cmd.Context()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	compiled, err := pipeline.Compile(filter.ELBScheme(), cfg.Pipelines)
	if err != nil {
		return nil, err
	}
	for _, c := range compiled {
		log.Information("Pipeline {Name}: {Filter} -> {Output}", c.Name, c.Filter, string(c.Output.Type))
	}

	reg := prometheus.NewRegistry()
	return &app{
		cfg:      cfg,
		log:      log,
		compiled: compiled,
		registry: reg,
		metrics:  monitor.NewMetrics(reg),
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
	}, nil
}

// clients holds the AWS clients a run needs. Only the ones used by the
// configured outputs and inputs are created.
type clients struct {
	s3             source.GetObjectAPI
	cloudWatch     sink.MetricsAPI
	cloudWatchLogs sink.LogsAPI
}

func (a *app) newClients(ctx context.Context, needS3 bool) (*clients, error) {
	c := &clients{}
	kinds := pipeline.Kinds(a.cfg.Pipelines)
	needCW, needLogs := false, false
	for _, k := range kinds {
		switch k {
		case sink.KindCloudWatchMetric:
			needCW = true
		case sink.KindCloudWatchLog:
			needLogs = true
		}
	}
	if !needS3 && !needCW && !needLogs {
		return c, nil
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if a.cfg.AWSRegion != "" {
		optFns = append(optFns, awsconfig.WithRegion(a.cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if needS3 {
		c.s3 = s3.NewFromConfig(awsCfg)
	}
	if needCW {
		c.cloudWatch = cloudwatch.NewFromConfig(awsCfg)
	}
	if needLogs {
		c.cloudWatchLogs = cloudwatchlogs.NewFromConfig(awsCfg)
	}
	return c, nil
}

// sinkEnv returns the collaborators every sink of a run is built with.
func (a *app) sinkEnv(c *clients) sink.Env {
	return sink.Env{
		Logger:         a.log,
		Metrics:        a.metrics,
		Stdout:         a.stdout,
		CloudWatch:     c.cloudWatch,
		CloudWatchLogs: c.cloudWatchLogs,
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "elbfilter",
		Short: "elbfilter routes ALB access-log records to CloudWatch and stdout",
		Long: `elbfilter reads Application Load Balancer access logs, evaluates every record
against the configured pipeline filters and forwards the matching records to
each pipeline's output.

Without a subcommand it processes the configured bucket keys, or starts the
Lambda handler when INSIDE_LAMBDA is set.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv(envInsideLambda) != "" {
				return runLambda(cmd, opts)
			}
			return runFiles(cmd, opts, nil)
		},
	}
	opts.register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newLambdaCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
