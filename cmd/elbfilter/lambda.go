package main

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/Geun-Oh/elbfilter/internal/pipeline"
	"github.com/Geun-Oh/elbfilter/internal/sink"
	"github.com/Geun-Oh/elbfilter/internal/source"
)

func newLambdaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run as an AWS Lambda function triggered by S3 object events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(cmd, opts)
		},
	}
}

// runLambda compiles the pipelines once, then serves invocations until the
// runtime stops the process.
func runLambda(cmd *cobra.Command, opts *options) error {
	a, err := prepare(cmd, opts)
	if err != nil {
		return err
	}
	cl, err := a.newClients(cmd.Context(), true)
	if err != nil {
		return err
	}
	h := &lambdaHandler{app: a, s3: cl.s3, env: a.sinkEnv(cl)}
	lambda.StartWithOptions(h.Handle, lambda.WithContext(cmd.Context()))
	return nil
}

type lambdaHandler struct {
	app *app
	s3  source.GetObjectAPI
	env sink.Env
}

// Handle processes every object of one S3 event with fresh sinks and
// returns the totals over all of them.
func (h *lambdaHandler) Handle(ctx context.Context, event events.S3Event) (pipeline.Summary, error) {
	log := h.app.log
	start := time.Now()
	log.Verbose("Got an S3 event with {Count} records", len(event.Records))

	var total pipeline.Summary
	reg, err := pipeline.NewRegistry(h.app.compiled, pipeline.BuildSink, h.env)
	if err != nil {
		return total, err
	}

	for _, rec := range event.Records {
		key := rec.S3.Object.URLDecodedKey
		if key == "" {
			key = rec.S3.Object.Key
		}
		src := source.NewS3Source(h.s3, rec.S3.Bucket.Name, key, log)
		sum, err := processSource(ctx, src, reg, log)
		total.Add(sum)
		if err != nil {
			log.Error("Failed to process {Source}: {Error}", src.Name(), err)
			return total, errors.Join(err, reg.Close(context.WithoutCancel(ctx)))
		}
	}
	if err := reg.Close(ctx); err != nil {
		return total, err
	}

	log.Information("Finished processing {TotalLines} lines with {MatchedLines} matches in {Elapsed}",
		total.TotalLines, total.MatchedLines, time.Since(start))
	return total, nil
}
