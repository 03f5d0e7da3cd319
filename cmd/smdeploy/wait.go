package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/urfave/cli/v3"

	"github.com/melanie531/smdeploy/internal/endpoint"
)

var waitCommand = &cli.Command{
	Name:  "wait",
	Usage: "Wait for an endpoint to leave the Creating state",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "endpoint",
			UsageText: "The endpoint name to wait for",
		},
	},
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "interval",
			Value: endpoint.DefaultPollInterval,
			Usage: "Pause between describe calls",
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Maximum number of describe calls (0 waits forever)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Overall deadline for the wait (0 waits forever)",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		endpointName := command.StringArg("endpoint")
		if endpointName == "" {
			return fmt.Errorf("no endpoint name provided")
		}

		if timeout := command.Duration("timeout"); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		cfg, err := loadAWSConfig(ctx, command)
		if err != nil {
			return err
		}

		waiter := endpoint.NewWaiter(logger.Named("waiter"), endpoint.NewClient(cfg),
			endpoint.WithInterval(command.Duration("interval")),
			endpoint.WithMaxAttempts(int(command.Int("max-attempts"))),
			endpoint.WithStatusObserver(func(status types.EndpointStatus) {
				fmt.Println(status)
			}))

		out, err := waiter.Wait(ctx, endpointName)
		if err != nil {
			return err
		}

		fmt.Printf("%s: %s (%s)\n", endpointName, out.EndpointStatus, aws.ToString(out.EndpointArn))
		if out.EndpointStatus == types.EndpointStatusFailed {
			fmt.Printf("failure reason: %s\n", aws.ToString(out.FailureReason))
		}
		return nil
	},
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
