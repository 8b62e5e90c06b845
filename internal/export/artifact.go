package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"
)

// WriteArtifact writes the output of fill to dir/name, brotli-compressed
// (name + ".br") when compress is set, and returns the final path.
func WriteArtifact(dir, name string, compress bool, fill func(w io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if compress {
		path += ".br"
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if !compress {
		if err := fill(f); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		return path, f.Close()
	}

	bw := brotli.NewWriter(f)
	if err := fill(bw); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Close(); err != nil {
		return "", err
	}
	return path, f.Close()
}
