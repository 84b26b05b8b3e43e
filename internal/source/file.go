package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Ext is the file extension of pipeline sources.
const Ext = ".flow"

// FileSource reads a pipeline file. Steps run in the file's directory.
type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(ctx context.Context) (*Unit, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline file %s: %w", s.Path, err)
	}
	dir, err := filepath.Abs(filepath.Dir(s.Path))
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", s.Path, err)
	}
	return &Unit{Name: s.Path, Text: string(data), Dir: dir}, nil
}

// InlineSource uses source text given on the command line.
type InlineSource struct {
	Text string
}

func (s *InlineSource) Fetch(ctx context.Context) (*Unit, error) {
	return &Unit{Name: "inline", Text: s.Text}, nil
}
