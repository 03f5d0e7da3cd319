package endpoint

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
)

// DescribeAPI is the subset of the SageMaker control-plane client used to
// observe endpoint state. This allows for easy mocking in tests.
type DescribeAPI interface {
	DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
}

// ControlPlaneAPI is the subset of the SageMaker control-plane client used to
// create the model, endpoint config and endpoint resources.
type ControlPlaneAPI interface {
	DescribeAPI
	CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)
	CreateEndpointConfig(ctx context.Context, params *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error)
	CreateEndpoint(ctx context.Context, params *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error)
}

// RuntimeAPI is the subset of the SageMaker runtime client used to invoke a
// deployed endpoint.
type RuntimeAPI interface {
	InvokeEndpoint(ctx context.Context, params *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

// NewClient creates a SageMaker control-plane client from a shared AWS
// configuration. Clients are constructed once per command and passed by
// handle; nothing in this package holds process-wide state.
func NewClient(cfg aws.Config, optFns ...func(*sagemaker.Options)) *sagemaker.Client {
	return sagemaker.NewFromConfig(cfg, optFns...)
}

// NewRuntimeClient creates a SageMaker runtime client from a shared AWS
// configuration.
func NewRuntimeClient(cfg aws.Config, optFns ...func(*sagemakerruntime.Options)) *sagemakerruntime.Client {
	return sagemakerruntime.NewFromConfig(cfg, optFns...)
}
