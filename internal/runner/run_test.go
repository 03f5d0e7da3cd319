package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	v1 "github.com/melanie531/smdeploy/apis/v1"
)

type mockControlPlane struct {
	createModelIn    *sagemaker.CreateModelInput
	createConfigIn   *sagemaker.CreateEndpointConfigInput
	createEndpointIn *sagemaker.CreateEndpointInput
	createModelErr   error
	describeStatus   types.EndpointStatus
	describes        int
}

func (m *mockControlPlane) CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error) {
	m.createModelIn = params
	if m.createModelErr != nil {
		return nil, m.createModelErr
	}
	return &sagemaker.CreateModelOutput{
		ModelArn: aws.String("arn:aws:sagemaker:us-east-1:123456789012:model/" + *params.ModelName),
	}, nil
}

func (m *mockControlPlane) CreateEndpointConfig(ctx context.Context, params *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error) {
	m.createConfigIn = params
	return &sagemaker.CreateEndpointConfigOutput{
		EndpointConfigArn: aws.String("arn:aws:sagemaker:us-east-1:123456789012:endpoint-config/" + *params.EndpointConfigName),
	}, nil
}

func (m *mockControlPlane) CreateEndpoint(ctx context.Context, params *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error) {
	m.createEndpointIn = params
	return &sagemaker.CreateEndpointOutput{
		EndpointArn: aws.String("arn:aws:sagemaker:us-east-1:123456789012:endpoint/" + *params.EndpointName),
	}, nil
}

func (m *mockControlPlane) DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error) {
	m.describes++
	return &sagemaker.DescribeEndpointOutput{
		EndpointName:   params.EndpointName,
		EndpointStatus: m.describeStatus,
	}, nil
}

type mockArtifactUploader struct {
	name string
	body []byte
}

func (m *mockArtifactUploader) Upload(ctx context.Context, name string, data io.Reader) (string, error) {
	m.name = name
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.body = body
	return fmt.Sprintf("s3://test-bucket/artifacts/%s", name), nil
}

func testJob() v1.DeployJob {
	return v1.DeployJob{
		Kind:     "DeployJob",
		Metadata: v1.Metadata{Name: "xgb-churn"},
		Spec: v1.DeployJobSpec{
			Model: v1.ModelSpec{
				Name:             "xgb-churn-model",
				Image:            "123456789012.dkr.ecr.us-east-1.amazonaws.com/xgboost:1.7-1",
				ExecutionRoleARN: "arn:aws:iam::123456789012:role/SageMakerRole",
				DataPath:         "model",
			},
			Artifact: &v1.ArtifactSpec{Bucket: "test-bucket", Prefix: "artifacts"},
			Endpoint: v1.EndpointSpec{
				Name:         "xgb-churn-endpoint",
				InstanceType: "ml.m5.large",
			},
		},
	}
}

func TestParseDeployJob(t *testing.T) {
	data := []byte(`
kind: DeployJob
metadata:
  name: xgb-churn
spec:
  model:
    name: xgb-churn-model
    image: 123456789012.dkr.ecr.us-east-1.amazonaws.com/xgboost:1.7-1
    executionRoleArn: arn:aws:iam::123456789012:role/SageMakerRole
    dataUrl: s3://models/xgb-churn/model.tar.gz
  endpoint:
    name: xgb-churn-endpoint
    instanceType: ml.m5.large
  wait:
    intervalSeconds: 30
    maxAttempts: 40
`)

	job, err := ParseDeployJob(data)
	require.NoError(t, err)
	assert.Equal(t, "xgb-churn", job.Metadata.Name)
	assert.Equal(t, "s3://models/xgb-churn/model.tar.gz", job.Spec.Model.DataURL)
	require.NotNil(t, job.Spec.Wait)
	assert.Equal(t, 30, job.Spec.Wait.IntervalSeconds)
	assert.Equal(t, 40, job.Spec.Wait.MaxAttempts)
}

func TestParseDeployJob_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "wrong kind",
			data: "kind: CollectJob\nmetadata:\n  name: x\n",
		},
		{
			name: "missing endpoint name",
			data: `
kind: DeployJob
metadata:
  name: x
spec:
  model:
    name: m
    image: img
    executionRoleArn: arn:aws:iam::123456789012:role/r
  endpoint:
    instanceType: ml.m5.large
`,
		},
		{
			name: "dataUrl without s3 scheme",
			data: `
kind: DeployJob
metadata:
  name: x
spec:
  model:
    name: m
    image: img
    executionRoleArn: arn:aws:iam::123456789012:role/r
    dataUrl: https://example.com/model.tar.gz
  endpoint:
    name: e
    instanceType: ml.m5.large
`,
		},
		{
			name: "both dataPath and dataUrl",
			data: `
kind: DeployJob
metadata:
  name: x
spec:
  model:
    name: m
    image: img
    executionRoleArn: arn:aws:iam::123456789012:role/r
    dataPath: ./model
    dataUrl: s3://models/model.tar.gz
  endpoint:
    name: e
    instanceType: ml.m5.large
`,
		},
		{
			name: "dataPath without artifact destination",
			data: `
kind: DeployJob
metadata:
  name: x
spec:
  model:
    name: m
    image: img
    executionRoleArn: arn:aws:iam::123456789012:role/r
    dataPath: ./model
  endpoint:
    name: e
    instanceType: ml.m5.large
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDeployJob([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestRunner_Run(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "model/xgboost-model.bin", []byte("weights"), 0644))
	require.NoError(t, afero.WriteFile(fsys, "model/.gitignore", []byte("x"), 0644))

	client := &mockControlPlane{describeStatus: types.EndpointStatusInService}
	uploader := &mockArtifactUploader{}

	r, err := New(zap.NewNop(), client, testJob(),
		WithFs(fsys),
		WithTempDir("tmp"),
		WithArtifactUploader(uploader))
	require.NoError(t, err)

	result, err := r.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "xgb-churn.tar.gz", uploader.name)
	assert.NotEmpty(t, uploader.body)
	assert.Equal(t, "s3://test-bucket/artifacts/xgb-churn.tar.gz", result.ModelDataURL)
	assert.Positive(t, result.ArchiveSizeMB)

	require.NotNil(t, client.createModelIn)
	assert.Equal(t, "xgb-churn-model", *client.createModelIn.ModelName)
	assert.Equal(t, result.ModelDataURL, *client.createModelIn.PrimaryContainer.ModelDataUrl)

	require.NotNil(t, client.createConfigIn)
	assert.Equal(t, "xgb-churn-endpoint-config", *client.createConfigIn.EndpointConfigName)
	require.Len(t, client.createConfigIn.ProductionVariants, 1)
	variant := client.createConfigIn.ProductionVariants[0]
	assert.Equal(t, "AllTraffic", *variant.VariantName)
	assert.Equal(t, int32(1), *variant.InitialInstanceCount)
	assert.Equal(t, types.ProductionVariantInstanceType("ml.m5.large"), variant.InstanceType)

	require.NotNil(t, client.createEndpointIn)
	assert.Equal(t, "xgb-churn-endpoint", *client.createEndpointIn.EndpointName)

	assert.Equal(t, types.EndpointStatusInService, result.EndpointStatus)
	assert.Equal(t, 1, client.describes)
}

func TestRunner_Run_ExistingDataURL(t *testing.T) {
	job := testJob()
	job.Spec.Model.DataPath = ""
	job.Spec.Model.DataURL = "s3://models/prebuilt/model.tar.gz"
	job.Spec.Artifact = nil

	client := &mockControlPlane{describeStatus: types.EndpointStatusInService}

	r, err := New(zap.NewNop(), client, job)
	require.NoError(t, err)

	result, err := r.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "s3://models/prebuilt/model.tar.gz", *client.createModelIn.PrimaryContainer.ModelDataUrl)
	assert.Zero(t, result.ArchiveSizeMB)
}

func TestRunner_Run_WaitDisabled(t *testing.T) {
	job := testJob()
	job.Spec.Model.DataPath = ""
	job.Spec.Artifact = nil
	job.Spec.Wait = &v1.WaitSpec{Disabled: true}

	client := &mockControlPlane{describeStatus: types.EndpointStatusInService}

	r, err := New(zap.NewNop(), client, job)
	require.NoError(t, err)

	result, err := r.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, types.EndpointStatusCreating, result.EndpointStatus)
	assert.Zero(t, client.describes)
}

func TestRunner_Run_FailedEndpointIsNotAnError(t *testing.T) {
	job := testJob()
	job.Spec.Model.DataPath = ""
	job.Spec.Artifact = nil

	client := &mockControlPlane{describeStatus: types.EndpointStatusFailed}

	r, err := New(zap.NewNop(), client, job)
	require.NoError(t, err)

	result, err := r.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, types.EndpointStatusFailed, result.EndpointStatus)
}

func TestRunner_Run_CreateModelError(t *testing.T) {
	job := testJob()
	job.Spec.Model.DataPath = ""
	job.Spec.Artifact = nil

	client := &mockControlPlane{createModelErr: errors.New("ValidationException: model already exists")}

	r, err := New(zap.NewNop(), client, job)
	require.NoError(t, err)

	_, err = r.Run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xgb-churn-model")
}

func TestNew_DataPathRequiresUploader(t *testing.T) {
	client := &mockControlPlane{}

	_, err := New(zap.NewNop(), client, testJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact uploader")
}
