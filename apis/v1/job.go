package v1

type DeployJob struct {
	Kind     string        `yaml:"kind" json:"kind" validate:"required,eq=DeployJob"`
	Metadata Metadata      `yaml:"metadata" json:"metadata" validate:"required"`
	Spec     DeployJobSpec `yaml:"spec" json:"spec" validate:"required"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type DeployJobSpec struct {
	Model    ModelSpec    `yaml:"model" json:"model" validate:"required"`
	Endpoint EndpointSpec `yaml:"endpoint" json:"endpoint" validate:"required"`

	// Artifact configures where locally packaged model data is uploaded.
	// Required when model.dataPath is set.
	Artifact *ArtifactSpec `yaml:"artifact,omitempty" json:"artifact,omitempty"`

	// Wait configures the post-create poll loop (default: poll every 15s,
	// no attempt bound).
	Wait *WaitSpec `yaml:"wait,omitempty" json:"wait,omitempty"`
}

// ModelSpec describes the SageMaker model resource. At most one of DataPath
// (a local directory to package and upload) or DataURL (an existing S3
// artifact) should be set; both empty is valid for containers that bundle
// their own weights.
type ModelSpec struct {
	Name             string            `yaml:"name" json:"name" validate:"required"`
	Image            string            `yaml:"image" json:"image" validate:"required"`
	ExecutionRoleARN string            `yaml:"executionRoleArn" json:"executionRoleArn" validate:"required"`
	DataPath         string            `yaml:"dataPath,omitempty" json:"dataPath,omitempty"`
	DataURL          string            `yaml:"dataUrl,omitempty" json:"dataUrl,omitempty" validate:"omitempty,startswith=s3://"`
	Environment      map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// ArtifactSpec configures the S3 destination for packaged model data.
type ArtifactSpec struct {
	Bucket string `yaml:"bucket" json:"bucket" validate:"required"`
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`

	// Compression selects the archive compression: gzip (default), zstd
	// or none.
	Compression string `yaml:"compression,omitempty" json:"compression,omitempty" validate:"omitempty,oneof=gzip zstd none"`
}

// EndpointSpec describes the endpoint config and endpoint resources.
type EndpointSpec struct {
	Name string `yaml:"name" json:"name" validate:"required"`

	// ConfigName defaults to "<name>-config".
	ConfigName string `yaml:"configName,omitempty" json:"configName,omitempty"`

	// VariantName defaults to "AllTraffic".
	VariantName string `yaml:"variantName,omitempty" json:"variantName,omitempty"`

	InstanceType string `yaml:"instanceType" json:"instanceType" validate:"required"`

	// InstanceCount defaults to 1.
	InstanceCount int32 `yaml:"instanceCount,omitempty" json:"instanceCount,omitempty" validate:"omitempty,gte=1"`
}

// WaitSpec configures endpoint readiness polling.
type WaitSpec struct {
	// Disabled skips waiting entirely; deploy returns right after
	// CreateEndpoint.
	Disabled bool `yaml:"disabled,omitempty" json:"disabled,omitempty"`

	IntervalSeconds int `yaml:"intervalSeconds,omitempty" json:"intervalSeconds,omitempty" validate:"omitempty,gte=1"`

	// MaxAttempts bounds the number of describe calls; zero keeps the
	// historical unbounded loop.
	MaxAttempts int `yaml:"maxAttempts,omitempty" json:"maxAttempts,omitempty" validate:"omitempty,gte=1"`
}
