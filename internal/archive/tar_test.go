package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readTarEntries decompresses the archive (gzip, zstd, or none) and returns
// a map of entry name -> content.
func readTarEntries(t *testing.T, fsys afero.Fs, path string, compression Compression) map[string]string {
	t.Helper()

	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)

	var decompressed io.Reader
	switch compression {
	case CompressionGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		require.NoError(t, err)
		decompressed = gr
	case CompressionZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer zr.Close()
		decompressed = zr
	case CompressionNone:
		decompressed = bytes.NewReader(data)
	default:
		t.Fatalf("unknown compression: %s", compression)
	}

	tr := tar.NewReader(decompressed)
	found := make(map[string]string)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		found[h.Name] = string(content)
	}
	return found
}

func TestPack(t *testing.T) {
	tests := []struct {
		name        string
		compression Compression
	}{
		{name: "gzip", compression: CompressionGzip},
		{name: "zstd", compression: CompressionZstd},
		{name: "none", compression: CompressionNone},
	}

	files := map[string]string{
		"src/a.txt":     "content a",
		"src/.hidden":   "secret",
		"src/sub/b.txt": "content b",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			writeFiles(t, fsys, files)

			dest := "model" + tt.compression.Extension()
			result, err := Pack(t.Context(), dest, "src", WithFs(fsys), WithCompression(tt.compression))
			require.NoError(t, err)
			assert.Equal(t, 2, result.Files)

			found := readTarEntries(t, fsys, dest, tt.compression)
			assert.Len(t, found, 2)
			assert.Equal(t, "content a", found["a.txt"])
			assert.Equal(t, "content b", found["sub/b.txt"])
			assert.NotContains(t, found, ".hidden")
		})
	}
}

func TestPack_SizeMB(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"src/data.bin": "0123456789"})

	result, err := Pack(t.Context(), "out.tar.gz", "src", WithFs(fsys))
	require.NoError(t, err)

	info, err := fsys.Stat("out.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, info.Size(), result.Bytes)
	assert.Equal(t, float64(info.Size())/1e6, result.SizeMB)
}

func TestPack_EmptySource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("empty", 0755))

	result, err := Pack(t.Context(), "out.tar.gz", "empty", WithFs(fsys))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Files)
	assert.Positive(t, result.Bytes, "empty archive still carries format overhead")

	found := readTarEntries(t, fsys, "out.tar.gz", CompressionGzip)
	assert.Empty(t, found)
}

func TestPack_Progress(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"src/a.txt": "a",
		"src/b.txt": "b",
		"src/c.txt": "c",
	})

	var calls []string
	progress := func(name string, index, total int) {
		calls = append(calls, fmt.Sprintf("%s %d/%d", name, index+1, total))
	}

	result, err := Pack(t.Context(), "out.tar.gz", "src", WithFs(fsys), WithProgress(progress))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Files)
	assert.Len(t, calls, 3)
	assert.Contains(t, calls[0], "1/3")
	assert.Contains(t, calls[2], "3/3")
}

func TestPack_UnsupportedCompression(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"src/a.txt": "a"})

	_, err := Pack(t.Context(), "out.tar.bz2", "src", WithFs(fsys), WithCompression("bzip2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported compression")
}

func TestPack_CancelledContext(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"src/a.txt": "a"})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := Pack(ctx, "out.tar.gz", "src", WithFs(fsys))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPack_SymlinksStoredNotFollowed(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("content a"), 0644))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(src, "link.txt")))

	dest := filepath.Join(t.TempDir(), "model.tar.gz")
	result, err := Pack(t.Context(), dest, src)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Files)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	gr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	headers := make(map[string]tar.Header)
	tr := tar.NewReader(gr)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		headers[h.Name] = *h
	}

	require.Contains(t, headers, "link.txt")
	link := headers["link.txt"]
	assert.Equal(t, byte(tar.TypeSymlink), link.Typeflag)
	assert.Equal(t, "a.txt", link.Linkname)
	assert.Zero(t, link.Size, "symlink entries carry no body")

	file := headers["a.txt"]
	assert.Equal(t, byte(tar.TypeReg), file.Typeflag)
	assert.Equal(t, int64(len("content a")), file.Size)
}

func TestPack_MissingSource(t *testing.T) {
	fsys := afero.NewMemMapFs()

	_, err := Pack(t.Context(), "out.tar.gz", "nope", WithFs(fsys))
	require.Error(t, err)
}
