package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// Compression defines supported compression algorithms.
type Compression string

const (
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionNone Compression = "none"
)

// Extension returns the archive file extension for this compression type.
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".tar.zst"
	case CompressionNone:
		return ".tar"
	default:
		return ".tar.gz"
	}
}

// Progress is called once per file as it is written to the archive.
// index is zero-based; total is the number of files selected for packaging.
type Progress func(name string, index, total int)

// Result describes a produced archive.
type Result struct {
	Files int
	Bytes int64
	// SizeMB is the archive size in decimal megabytes (bytes / 1e6).
	SizeMB float64
}

type packer struct {
	fs          afero.Fs
	compression Compression
	progress    Progress
}

// Option configures Pack.
type Option func(*packer)

// WithCompression selects the compression algorithm. Defaults to gzip.
func WithCompression(c Compression) Option {
	return func(p *packer) {
		p.compression = c
	}
}

// WithProgress installs a per-file progress callback.
func WithProgress(fn Progress) Option {
	return func(p *packer) {
		p.progress = fn
	}
}

// WithFs overrides the filesystem used for both reading the source tree and
// writing the archive. Defaults to the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(p *packer) {
		p.fs = fsys
	}
}

// Pack creates a compressed tar archive at dest containing every
// non-hidden file under root, with entry names relative to root. It returns
// the number of files written and the archive's size. An empty source tree
// still produces a valid archive with zero entries.
func Pack(ctx context.Context, dest, root string, opts ...Option) (Result, error) {
	p := &packer{
		fs:          afero.NewOsFs(),
		compression: CompressionGzip,
	}
	for _, opt := range opts {
		opt(p)
	}

	entries, err := ListFiles(p.fs, root)
	if err != nil {
		return Result{}, err
	}

	if err := p.writeArchive(ctx, dest, entries); err != nil {
		return Result{}, err
	}

	info, err := p.fs.Stat(dest)
	if err != nil {
		return Result{}, fmt.Errorf("failed to stat archive %s: %w", dest, err)
	}

	return Result{
		Files:  len(entries),
		Bytes:  info.Size(),
		SizeMB: float64(info.Size()) / 1e6,
	}, nil
}

func (p *packer) writeArchive(ctx context.Context, dest string, entries []Entry) (err error) {
	out, err := p.fs.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", dest, err)
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	var compressor io.WriteCloser
	switch p.compression {
	case CompressionGzip:
		compressor = gzip.NewWriter(out)
	case CompressionZstd:
		compressor, err = zstd.NewWriter(out)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
	case CompressionNone:
		compressor = &nopWriteCloser{out}
	default:
		return fmt.Errorf("unsupported compression type: %s", p.compression)
	}

	tw := tar.NewWriter(compressor)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("packaging cancelled: %w", err)
		}
		if p.progress != nil {
			p.progress(entry.Name, i, len(entries))
		}
		if err := p.addFile(tw, entry); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("failed to close compressor: %w", err)
	}

	return nil
}

func (p *packer) addFile(tw *tar.Writer, entry Entry) error {
	link := ""
	if entry.Info.Mode()&fs.ModeSymlink != 0 {
		target, err := readlink(p.fs, entry.Path)
		if err != nil {
			return fmt.Errorf("failed to read symlink %s: %w", entry.Path, err)
		}
		link = target
	}

	header, err := tar.FileInfoHeader(entry.Info, link)
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", entry.Name, err)
	}
	header.Name = entry.Name

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", entry.Name, err)
	}

	// Symlinks carry no body.
	if link != "" {
		return nil
	}

	f, err := p.fs.Open(entry.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", entry.Path, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write tar content for %s: %w", entry.Name, err)
	}

	return nil
}

func readlink(fsys afero.Fs, path string) (string, error) {
	reader, ok := fsys.(afero.LinkReader)
	if !ok {
		return "", fmt.Errorf("filesystem %s does not support symlinks", fsys.Name())
	}
	return reader.ReadlinkIfPossible(path)
}

// nopWriteCloser wraps a Writer to provide a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (n *nopWriteCloser) Close() error {
	return nil
}
