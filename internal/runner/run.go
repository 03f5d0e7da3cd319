package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	v1 "github.com/melanie531/smdeploy/apis/v1"
	"github.com/melanie531/smdeploy/internal/archive"
	"github.com/melanie531/smdeploy/internal/endpoint"
)

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// ParseDeployJob parses a YAML or JSON job file and validates it. It returns
// a validated DeployJob struct or an error if parsing or validation fails.
func ParseDeployJob(data []byte) (v1.DeployJob, error) {
	var job v1.DeployJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.DeployJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := defaultValidator.Struct(job); err != nil {
		return v1.DeployJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	if job.Spec.Model.DataPath != "" && job.Spec.Model.DataURL != "" {
		return v1.DeployJob{}, fmt.Errorf("model %q sets both dataPath and dataUrl", job.Spec.Model.Name)
	}
	if job.Spec.Model.DataPath != "" && job.Spec.Artifact == nil {
		return v1.DeployJob{}, fmt.Errorf("model %q sets dataPath but no artifact destination is configured", job.Spec.Model.Name)
	}

	return job, nil
}

// ArtifactUploader stores a packaged model artifact and returns its S3 URI.
type ArtifactUploader interface {
	Upload(ctx context.Context, name string, data io.Reader) (string, error)
}

// Result summarizes one deploy run.
type Result struct {
	ModelArn          string
	EndpointConfigArn string
	EndpointArn       string
	ModelDataURL      string
	ArchiveSizeMB     float64
	// EndpointStatus is the status observed when the wait finished, or
	// Creating when waiting was disabled.
	EndpointStatus types.EndpointStatus
}

// Runner drives a deploy job end to end: package, upload, create resources,
// wait for the endpoint to leave Creating.
type Runner struct {
	logger   *zap.Logger
	job      v1.DeployJob
	client   endpoint.ControlPlaneAPI
	uploader ArtifactUploader
	fs       afero.Fs
	tmpDir   string
	progress archive.Progress
}

// Option configures a Runner.
type Option func(*Runner)

// WithFs overrides the filesystem used for packaging. Defaults to the OS
// filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fsys
	}
}

// WithArtifactUploader sets the uploader for locally packaged model data.
// Required when the job packages a local directory.
func WithArtifactUploader(uploader ArtifactUploader) Option {
	return func(r *Runner) {
		r.uploader = uploader
	}
}

// WithTempDir overrides where the intermediate archive is written.
func WithTempDir(dir string) Option {
	return func(r *Runner) {
		r.tmpDir = dir
	}
}

// WithPackProgress installs a per-file packaging progress callback.
func WithPackProgress(fn archive.Progress) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// New creates a runner for the given job.
func New(logger *zap.Logger, client endpoint.ControlPlaneAPI, job v1.DeployJob, opts ...Option) (*Runner, error) {
	r := &Runner{
		logger: logger,
		job:    applyDefaults(job),
		client: client,
		fs:     afero.NewOsFs(),
		tmpDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.job.Spec.Model.DataPath != "" && r.uploader == nil {
		return nil, fmt.Errorf("job %q packages a local directory but no artifact uploader is configured", job.Metadata.Name)
	}

	return r, nil
}

func applyDefaults(job v1.DeployJob) v1.DeployJob {
	if job.Spec.Endpoint.ConfigName == "" {
		job.Spec.Endpoint.ConfigName = job.Spec.Endpoint.Name + "-config"
	}
	if job.Spec.Endpoint.VariantName == "" {
		job.Spec.Endpoint.VariantName = "AllTraffic"
	}
	if job.Spec.Endpoint.InstanceCount == 0 {
		job.Spec.Endpoint.InstanceCount = 1
	}
	return job
}

// Run executes the deploy job and returns a summary of the created
// resources. Waiting honors the job's wait settings; an endpoint that lands
// in Failed is reported through Result.EndpointStatus, not as an error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	modelDataURL, err := r.resolveModelData(ctx, result)
	if err != nil {
		return nil, err
	}
	result.ModelDataURL = modelDataURL

	if err := r.createResources(ctx, modelDataURL, result); err != nil {
		return nil, err
	}

	result.EndpointStatus = types.EndpointStatusCreating
	if r.job.Spec.Wait != nil && r.job.Spec.Wait.Disabled {
		r.logger.Info("waiting disabled, endpoint left creating",
			zap.String("endpoint_name", r.job.Spec.Endpoint.Name))
		return result, nil
	}

	out, err := r.newWaiter().Wait(ctx, r.job.Spec.Endpoint.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for endpoint: %w", err)
	}
	result.EndpointStatus = out.EndpointStatus

	return result, nil
}

func (r *Runner) resolveModelData(ctx context.Context, result *Result) (string, error) {
	model := r.job.Spec.Model
	if model.DataPath == "" {
		return model.DataURL, nil
	}

	artifact := r.job.Spec.Artifact
	compression := archive.Compression(artifact.Compression)
	if compression == "" {
		compression = archive.CompressionGzip
	}

	name := r.job.Metadata.Name + compression.Extension()
	dest := filepath.Join(r.tmpDir, name)

	r.logger.Info("packaging model data",
		zap.String("source", model.DataPath),
		zap.String("archive", dest))

	packed, err := archive.Pack(ctx, dest, model.DataPath,
		archive.WithFs(r.fs),
		archive.WithCompression(compression),
		archive.WithProgress(r.progress))
	if err != nil {
		return "", fmt.Errorf("failed to package model data: %w", err)
	}
	result.ArchiveSizeMB = packed.SizeMB

	r.logger.Info("model data packaged",
		zap.Int("files", packed.Files),
		zap.Float64("size_mb", packed.SizeMB))

	f, err := r.fs.Open(dest)
	if err != nil {
		return "", fmt.Errorf("failed to open archive %s: %w", dest, err)
	}
	defer f.Close()

	uri, err := r.uploader.Upload(ctx, name, f)
	if err != nil {
		return "", fmt.Errorf("failed to upload model data: %w", err)
	}

	return uri, nil
}

func (r *Runner) newWaiter() *endpoint.Waiter {
	var opts []endpoint.WaiterOption
	if wait := r.job.Spec.Wait; wait != nil {
		if wait.IntervalSeconds > 0 {
			opts = append(opts, endpoint.WithInterval(time.Duration(wait.IntervalSeconds)*time.Second))
		}
		if wait.MaxAttempts > 0 {
			opts = append(opts, endpoint.WithMaxAttempts(wait.MaxAttempts))
		}
	}
	return endpoint.NewWaiter(r.logger.Named("waiter"), r.client, opts...)
}
