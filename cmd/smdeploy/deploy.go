package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/urfave/cli/v3"

	v1 "github.com/melanie531/smdeploy/apis/v1"
	"github.com/melanie531/smdeploy/internal/endpoint"
	"github.com/melanie531/smdeploy/internal/runner"
	"github.com/melanie531/smdeploy/internal/storage"
)

var deployCommand = &cli.Command{
	Name:  "deploy",
	Usage: "Run a deploy job: package, upload, create resources, wait",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The deploy job file",
		},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "no-wait",
			Usage: "Return right after CreateEndpoint instead of polling",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		jobFilename := command.StringArg("job")
		if jobFilename == "" {
			return fmt.Errorf("no job file provided")
		}

		jobFile, err := os.ReadFile(jobFilename)
		if err != nil {
			return fmt.Errorf("failed to read job file: %w", err)
		}

		job, err := runner.ParseDeployJob(jobFile)
		if err != nil {
			return fmt.Errorf("failed to parse job: %w", err)
		}

		if command.Bool("no-wait") {
			if job.Spec.Wait == nil {
				job.Spec.Wait = &v1.WaitSpec{}
			}
			job.Spec.Wait.Disabled = true
		}

		cfg, err := loadAWSConfig(ctx, command)
		if err != nil {
			return err
		}

		opts := []runner.Option{}
		if artifact := job.Spec.Artifact; artifact != nil {
			store := storage.NewArtifactStore(cfg, logger.Named("storage"), artifact.Bucket, artifact.Prefix)
			opts = append(opts, runner.WithArtifactUploader(store))
		}
		if isInteractive(ctx) {
			opts = append(opts, runner.WithPackProgress(func(name string, index, total int) {
				fmt.Printf("%s (%d/%d)\n", name, index+1, total)
			}))
		}

		r, err := runner.New(logger.Named("runner"), endpoint.NewClient(cfg), job, opts...)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		result, err := r.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to run job: %w", err)
		}

		if result.ModelDataURL != "" {
			fmt.Printf("model data: %s\n", result.ModelDataURL)
		}
		if result.ArchiveSizeMB > 0 {
			fmt.Printf("archive size: %g MB\n", result.ArchiveSizeMB)
		}
		fmt.Printf("model: %s\n", result.ModelArn)
		fmt.Printf("endpoint config: %s\n", result.EndpointConfigArn)
		fmt.Printf("endpoint: %s\n", result.EndpointArn)
		fmt.Printf("status: %s\n", result.EndpointStatus)
		if result.EndpointStatus == types.EndpointStatusFailed {
			fmt.Println("endpoint creation failed; inspect the endpoint in the SageMaker console")
		}
		return nil
	},
}
