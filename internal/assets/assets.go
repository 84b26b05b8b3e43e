// Package assets provides embedded default pipelines and file templates.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed pipelines/*.flow
var pipelinesFS embed.FS

//go:embed templates/*
var templatesFS embed.FS

const stateDir = ".vflow"

// LoadPipeline returns the source of a pipeline by name.
// Override lookup order: project .vflow/pipelines/ > user ~/.vflow/pipelines/ > embedded.
func LoadPipeline(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid pipeline name %q", name)
	}
	content, err := loadWithOverride("pipelines", name+".flow", pipelinesFS)
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// AllPipelines returns all embedded pipelines as a map (name → source).
func AllPipelines() (map[string]string, error) {
	return readAll(pipelinesFS, "pipelines", ".flow")
}

// LoadTemplate returns an embedded template file by name.
func LoadTemplate(name string) (string, error) {
	data, err := templatesFS.ReadFile(path.Join("templates", name))
	if err != nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	return string(data), nil
}

func loadWithOverride(dir, filename string, embedded embed.FS) (string, error) {
	// 1. project-level override
	projectPath := filepath.Join(stateDir, dir, filename)
	if data, err := os.ReadFile(projectPath); err == nil {
		return string(data), nil
	}

	// 2. user-level override
	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, stateDir, dir, filename)
		if data, err := os.ReadFile(userPath); err == nil {
			return string(data), nil
		}
	}

	// 3. embedded default
	data, err := embedded.ReadFile(path.Join(dir, filename))
	if err != nil {
		return "", fmt.Errorf("%s %q not found", dir, filename)
	}
	return string(data), nil
}

func readAll(fsys embed.FS, dir, ext string) (map[string]string, error) {
	result := map[string]string{}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if path.Ext(name) != ext {
			continue
		}
		data, err := fsys.ReadFile(path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		key := name[:len(name)-len(ext)]
		result[key] = string(data)
	}
	return result, nil
}
