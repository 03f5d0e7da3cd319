package runner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"go.uber.org/zap"
)

// createResources creates the model, endpoint config and endpoint, in that
// order. Service errors propagate untranslated; already-existing resources
// surface as the SDK's validation errors.
func (r *Runner) createResources(ctx context.Context, modelDataURL string, result *Result) error {
	spec := r.job.Spec

	container := &types.ContainerDefinition{
		Image: aws.String(spec.Model.Image),
	}
	if modelDataURL != "" {
		container.ModelDataUrl = aws.String(modelDataURL)
	}
	if len(spec.Model.Environment) > 0 {
		container.Environment = spec.Model.Environment
	}

	model, err := r.client.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName:        aws.String(spec.Model.Name),
		ExecutionRoleArn: aws.String(spec.Model.ExecutionRoleARN),
		PrimaryContainer: container,
	})
	if err != nil {
		return fmt.Errorf("failed to create model %s: %w", spec.Model.Name, err)
	}
	result.ModelArn = aws.ToString(model.ModelArn)
	r.logger.Info("created model",
		zap.String("model_name", spec.Model.Name),
		zap.String("model_arn", result.ModelArn))

	config, err := r.client.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(spec.Endpoint.ConfigName),
		ProductionVariants: []types.ProductionVariant{
			{
				VariantName:          aws.String(spec.Endpoint.VariantName),
				ModelName:            aws.String(spec.Model.Name),
				InstanceType:         types.ProductionVariantInstanceType(spec.Endpoint.InstanceType),
				InitialInstanceCount: aws.Int32(spec.Endpoint.InstanceCount),
				InitialVariantWeight: aws.Float32(1),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create endpoint config %s: %w", spec.Endpoint.ConfigName, err)
	}
	result.EndpointConfigArn = aws.ToString(config.EndpointConfigArn)
	r.logger.Info("created endpoint config",
		zap.String("endpoint_config_name", spec.Endpoint.ConfigName),
		zap.String("endpoint_config_arn", result.EndpointConfigArn))

	created, err := r.client.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(spec.Endpoint.Name),
		EndpointConfigName: aws.String(spec.Endpoint.ConfigName),
	})
	if err != nil {
		return fmt.Errorf("failed to create endpoint %s: %w", spec.Endpoint.Name, err)
	}
	result.EndpointArn = aws.ToString(created.EndpointArn)
	r.logger.Info("created endpoint",
		zap.String("endpoint_name", spec.Endpoint.Name),
		zap.String("endpoint_arn", result.EndpointArn))

	return nil
}
