package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/melanie531/smdeploy/internal/endpoint"
)

var invokeCommand = &cli.Command{
	Name:  "invoke",
	Usage: "Send an inference request to a deployed endpoint",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "endpoint",
			UsageText: "The endpoint name to invoke",
		},
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "payload",
			Aliases: []string{"p"},
			Value:   "-",
			Usage:   "Payload file path, or - for stdin",
		},
		&cli.StringFlag{
			Name:  "content-type",
			Value: "application/json",
			Usage: "Payload content type",
		},
		&cli.StringFlag{
			Name:  "accept",
			Usage: "Desired response content type",
		},
		&cli.StringFlag{
			Name:  "target-variant",
			Usage: "Route the request to a specific production variant",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		endpointName := command.StringArg("endpoint")
		if endpointName == "" {
			return fmt.Errorf("no endpoint name provided")
		}

		payload, err := readPayload(command.String("payload"))
		if err != nil {
			return err
		}

		cfg, err := loadAWSConfig(ctx, command)
		if err != nil {
			return err
		}

		invoker := endpoint.NewInvoker(logger.Named("invoker"), endpoint.NewRuntimeClient(cfg))
		resp, err := invoker.Invoke(ctx, endpoint.InvokeRequest{
			EndpointName:  endpointName,
			Payload:       payload,
			ContentType:   command.String("content-type"),
			Accept:        command.String("accept"),
			TargetVariant: command.String("target-variant"),
		})
		if err != nil {
			return err
		}

		logger.Debug("endpoint invoked",
			zap.String("endpoint_name", endpointName),
			zap.String("invoked_variant", resp.InvokedVariant))

		if _, err := os.Stdout.Write(resp.Body); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		fmt.Println()
		return nil
	},
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload file %s: %w", path, err)
	}
	return data, nil
}
