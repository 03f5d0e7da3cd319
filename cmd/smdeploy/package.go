package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/melanie531/smdeploy/internal/archive"
	"github.com/melanie531/smdeploy/internal/storage"
)

var packageCommand = &cli.Command{
	Name:  "package",
	Usage: "Package a model directory into a compressed tar archive",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "dir",
			UsageText: "The model directory to package",
		},
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Archive destination path (defaults to <dir>.tar.gz)",
		},
		&cli.StringFlag{
			Name:  "compression",
			Value: "gzip",
			Usage: "Compression algorithm (gzip, zstd, none)",
		},
		&cli.StringFlag{
			Name:  "upload",
			Usage: "Upload the archive to an s3://bucket/prefix destination",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		dir := command.StringArg("dir")
		if dir == "" {
			return fmt.Errorf("no model directory provided")
		}

		compression := archive.Compression(command.String("compression"))
		output := command.String("output")
		if output == "" {
			base := filepath.Base(strings.TrimSuffix(dir, string(filepath.Separator)))
			output = base + compression.Extension()
		}

		opts := []archive.Option{archive.WithCompression(compression)}
		if isInteractive(ctx) {
			opts = append(opts, archive.WithProgress(func(name string, index, total int) {
				fmt.Printf("%s (%d/%d)\n", name, index+1, total)
			}))
		}

		result, err := archive.Pack(ctx, output, dir, opts...)
		if err != nil {
			return fmt.Errorf("failed to package %s: %w", dir, err)
		}

		logger.Info("archive created",
			zap.String("archive", output),
			zap.Int("files", result.Files),
			zap.Float64("size_mb", result.SizeMB))
		fmt.Printf("%s: %d files, %g MB\n", output, result.Files, result.SizeMB)

		uploadURI := command.String("upload")
		if uploadURI == "" {
			return nil
		}

		bucket, prefix, err := storage.ParseS3URI(uploadURI)
		if err != nil {
			return err
		}

		cfg, err := loadAWSConfig(ctx, command)
		if err != nil {
			return err
		}

		store := storage.NewArtifactStore(cfg, logger.Named("storage"), bucket, prefix)

		f, err := os.Open(output)
		if err != nil {
			return fmt.Errorf("failed to open archive %s: %w", output, err)
		}
		defer f.Close()

		uri, err := store.Upload(ctx, filepath.Base(output), f)
		if err != nil {
			return err
		}

		fmt.Printf("uploaded to %s\n", uri)
		return nil
	},
}
