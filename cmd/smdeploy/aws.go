package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/urfave/cli/v3"
)

// loadAWSConfig resolves the shared AWS configuration once per command.
// Region and credentials default to the ambient SDK resolution chain; the
// global flags override them. Every service client is built from the
// returned config and passed by handle, nothing is cached at package scope.
func loadAWSConfig(ctx context.Context, command *cli.Command) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(cleanhttp.DefaultPooledClient()),
	}

	if region := command.String("region"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	if profile := command.String("profile"); profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	accessKey := command.String("access-key-id")
	secretKey := command.String("secret-access-key")
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cfg, nil
}
