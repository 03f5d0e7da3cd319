package endpoint

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"go.uber.org/zap"
)

// InvokeRequest carries one inference request to a deployed endpoint.
type InvokeRequest struct {
	EndpointName  string
	Payload       []byte
	ContentType   string
	Accept        string
	TargetVariant string
}

// InvokeResponse is the inference response body plus the metadata callers
// usually care about.
type InvokeResponse struct {
	Body           []byte
	ContentType    string
	InvokedVariant string
}

// Invoker sends inference requests through the SageMaker runtime client.
type Invoker struct {
	client RuntimeAPI
	logger *zap.Logger
}

// NewInvoker creates an invoker using the given runtime client.
func NewInvoker(logger *zap.Logger, client RuntimeAPI) *Invoker {
	return &Invoker{client: client, logger: logger}
}

// Invoke sends the payload to the endpoint and returns the raw response.
// Service errors (model error, throttling, missing endpoint) propagate
// wrapped, never retried.
func (i *Invoker) Invoke(ctx context.Context, req InvokeRequest) (InvokeResponse, error) {
	input := &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(req.EndpointName),
		Body:         req.Payload,
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}
	if req.Accept != "" {
		input.Accept = aws.String(req.Accept)
	}
	if req.TargetVariant != "" {
		input.TargetVariant = aws.String(req.TargetVariant)
	}

	i.logger.Debug("invoking endpoint",
		zap.String("endpoint_name", req.EndpointName),
		zap.Int("payload_bytes", len(req.Payload)))

	out, err := i.client.InvokeEndpoint(ctx, input)
	if err != nil {
		return InvokeResponse{}, fmt.Errorf("failed to invoke endpoint %s: %w", req.EndpointName, err)
	}

	resp := InvokeResponse{Body: out.Body}
	if out.ContentType != nil {
		resp.ContentType = *out.ContentType
	}
	if out.InvokedProductionVariant != nil {
		resp.InvokedVariant = *out.InvokedProductionVariant
	}

	return resp, nil
}
