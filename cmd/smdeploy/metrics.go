package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/melanie531/smdeploy/internal/metrics"
)

var metricsCommand = &cli.Command{
	Name:  "metrics",
	Usage: "Print CloudWatch invocation metrics for an endpoint",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "endpoint",
			UsageText: "The endpoint name to read metrics for",
		},
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "variant",
			Value: "AllTraffic",
			Usage: "Production variant name",
		},
		&cli.DurationFlag{
			Name:  "since",
			Value: time.Hour,
			Usage: "Lookback window",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		endpointName := command.StringArg("endpoint")
		if endpointName == "" {
			return fmt.Errorf("no endpoint name provided")
		}

		cfg, err := loadAWSConfig(ctx, command)
		if err != nil {
			return err
		}

		fetcher := metrics.NewFetcher(logger.Named("metrics"), metrics.NewClient(cfg))

		end := time.Now().UTC()
		start := end.Add(-command.Duration("since"))

		result, err := fetcher.EndpointMetrics(ctx, endpointName, command.String("variant"), start, end)
		if err != nil {
			return err
		}

		if len(result.Invocations) == 0 && len(result.ModelLatencyMicros) == 0 {
			fmt.Printf("no datapoints for %s between %s and %s\n",
				endpointName, start.Format(time.RFC3339), end.Format(time.RFC3339))
			return nil
		}

		fmt.Println("invocations:")
		for _, point := range result.Invocations {
			fmt.Printf("  %s  %g\n", point.Timestamp.UTC().Format(time.RFC3339), point.Value)
		}
		fmt.Println("model latency (us):")
		for _, point := range result.ModelLatencyMicros {
			fmt.Printf("  %s  %g\n", point.Timestamp.UTC().Format(time.RFC3339), point.Value)
		}
		return nil
	},
}
