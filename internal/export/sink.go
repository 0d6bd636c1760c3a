package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Sink delivers an exported file somewhere and returns a reference to it.
type Sink interface {
	Save(ctx context.Context, f File) (string, error)
}

// FileSink writes files into a directory.
type FileSink struct {
	fs  afero.Fs
	dir string
}

// NewFileSink creates a sink writing into dir on fs. A nil fs means the OS filesystem.
func NewFileSink(fs afero.Fs, dir string) *FileSink {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSink{fs: fs, dir: dir}
}

// Save writes f and returns its path. Existing files are replaced.
func (s *FileSink) Save(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Name == "" || f.Name != filepath.Base(f.Name) {
		return "", fmt.Errorf("invalid file name %q", f.Name)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(s.dir, f.Name)
	if err := afero.WriteFile(s.fs, path, f.Content, os.FileMode(0o644)); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
