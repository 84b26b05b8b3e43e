package source

import (
	"context"

	"github.com/futureCreator/vflow/internal/assets"
)

// NamedSource loads a pipeline by name from project or user overrides or
// the embedded defaults.
type NamedSource struct {
	Name string
}

func (s *NamedSource) Fetch(ctx context.Context) (*Unit, error) {
	data, err := assets.LoadPipeline(s.Name)
	if err != nil {
		return nil, err
	}
	return &Unit{Name: s.Name, Text: string(data)}, nil
}
