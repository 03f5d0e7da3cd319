package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/urfave/cli/v3"

	"github.com/melanie531/smdeploy/internal/endpoint"
)

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Describe an endpoint once and print its state",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "endpoint",
			UsageText: "The endpoint name to describe",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		endpointName := command.StringArg("endpoint")
		if endpointName == "" {
			return fmt.Errorf("no endpoint name provided")
		}

		cfg, err := loadAWSConfig(ctx, command)
		if err != nil {
			return err
		}

		client := endpoint.NewClient(cfg)
		out, err := client.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
			EndpointName: aws.String(endpointName),
		})
		if err != nil {
			return fmt.Errorf("failed to describe endpoint %s: %w", endpointName, err)
		}

		fmt.Printf("name:     %s\n", aws.ToString(out.EndpointName))
		fmt.Printf("status:   %s\n", out.EndpointStatus)
		fmt.Printf("arn:      %s\n", aws.ToString(out.EndpointArn))
		fmt.Printf("config:   %s\n", aws.ToString(out.EndpointConfigName))
		fmt.Printf("created:  %s\n", formatTime(out.CreationTime))
		fmt.Printf("modified: %s\n", formatTime(out.LastModifiedTime))
		if out.EndpointStatus == types.EndpointStatusFailed {
			fmt.Printf("failure:  %s\n", aws.ToString(out.FailureReason))
		}
		return nil
	},
}
