package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// Store keys written by the start phase of every compiled pipeline.
const (
	KeyPipelineName = "pipeline.name"
	// KeyVarPrefix prefixes each run variable copied into the store.
	KeyVarPrefix = "var."
)

// Input is the run input placed in the workflow Context's input slot.
// Steps read it with workflow.InputAs[pipeline.Input].
type Input struct {
	Pipeline  string
	Source    string // file path, or "inline"
	Vars      map[string]string
	GitBranch string
	GitCommit string
	WorkDir   string
}

// Var returns the run variable key.
func (in Input) Var(key string) (string, bool) {
	v, ok := in.Vars[key]
	return v, ok
}

// ParseVars turns key=value pairs into a map. Later pairs win.
func ParseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("variable %q: want key=value", p)
		}
		vars[k] = v
	}
	return vars, nil
}

// SortedVars returns the variable names in sorted order.
func (in Input) SortedVars() []string {
	keys := make([]string, 0, len(in.Vars))
	for k := range in.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
