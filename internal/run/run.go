package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/futureCreator/vflow/internal/workflow"
)

// Status values written to meta.json.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Run represents a single pipeline execution record.
type Run struct {
	ID   string
	Dir  string
	Meta Meta
}

// Meta holds metadata about a run, persisted to meta.json.
type Meta struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
	Pipeline   string       `json:"pipeline"`
	Source     string       `json:"source"` // file path, "inline", or a pipeline name
	RunID      string       `json:"run_id,omitempty"`
	Status     string       `json:"status"`
	Steps      []StepResult `json:"steps"`
	DurationMS int64        `json:"duration_ms"`
	Error      string       `json:"error,omitempty"`
	Secondary  []string     `json:"secondary_errors,omitempty"`
	Cause      string       `json:"cancel_cause,omitempty"`
	GitBranch  string       `json:"git_branch"`
	GitCommit  string       `json:"git_commit"`
}

// StepResult records the outcome of a single step.
type StepResult struct {
	Name       string `json:"name"`
	Phase      string `json:"phase"`
	Status     string `json:"status"` // "completed" | "failed" | "canceled" | "skipped"
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// New creates a new run directory under baseDir.
func New(baseDir, pipeline, source, gitBranch, gitCommit string) (*Run, error) {
	now := time.Now()
	ms := now.UnixMilli() % 1000
	id := fmt.Sprintf("%s-%03d-%s",
		now.Format("20060102-150405"),
		ms,
		sanitizeSlug(pipeline),
	)

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating runs dir: %w", err)
	}

	dir := filepath.Join(baseDir, id)
	if err := os.Mkdir(dir, 0755); err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating run dir: %w", err)
		}
		// Two runs of the same pipeline within one millisecond.
		dir, err = os.MkdirTemp(baseDir, id+"-")
		if err != nil {
			return nil, fmt.Errorf("creating run dir: %w", err)
		}
		id = filepath.Base(dir)
	}

	r := &Run{
		ID:  id,
		Dir: dir,
		Meta: Meta{
			StartedAt: now,
			Pipeline:  pipeline,
			Source:    source,
			Status:    StatusRunning,
			GitBranch: gitBranch,
			GitCommit: gitCommit,
		},
	}

	if err := r.SaveMeta(); err != nil {
		return nil, err
	}

	if err := updateLatestLink(baseDir, id); err != nil {
		return nil, err
	}

	return r, nil
}

// SaveMeta writes meta.json to the run directory.
func (r *Run) SaveMeta() error {
	data, err := json.MarshalIndent(r.Meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	return os.WriteFile(r.FilePath("meta.json"), data, 0644)
}

// MarkFailed records that the run entered error handling.
func (r *Run) MarkFailed() error {
	r.Meta.Status = StatusFailed
	return r.SaveMeta()
}

// Finish copies the final state of res into the record and saves it.
func (r *Run) Finish(res *workflow.Result) error {
	r.Meta.RunID = res.ID.String()
	r.Meta.FinishedAt = res.StartedAt.Add(res.Duration)
	r.Meta.DurationMS = res.Duration.Milliseconds()
	switch res.Outcome {
	case workflow.OutcomeSucceeded:
		r.Meta.Status = StatusSucceeded
	case workflow.OutcomeFailed:
		r.Meta.Status = StatusFailed
	case workflow.OutcomeCanceled:
		r.Meta.Status = StatusCanceled
	}
	if res.Primary != nil {
		r.Meta.Error = res.Primary.Error()
	}
	r.Meta.Secondary = nil
	for _, err := range res.Secondary {
		r.Meta.Secondary = append(r.Meta.Secondary, err.Error())
	}
	if res.Cause != nil {
		r.Meta.Cause = res.Cause.Error()
	}
	r.Meta.Steps = make([]StepResult, 0, len(res.Steps))
	for _, s := range res.Steps {
		sr := StepResult{
			Name:       s.Name,
			Phase:      s.Phase.String(),
			Status:     s.Status.String(),
			DurationMS: s.Duration.Milliseconds(),
		}
		if s.Err != nil {
			sr.Error = s.Err.Error()
		}
		r.Meta.Steps = append(r.Meta.Steps, sr)
	}
	return r.SaveMeta()
}

// FilePath returns the path to a file within this run directory.
func (r *Run) FilePath(name string) string {
	return filepath.Join(r.Dir, name)
}


// Entry is a run record read back from disk.
type Entry struct {
	ID   string
	Meta Meta
}

// List reads every run record under baseDir, newest first. Unreadable
// records are skipped. A missing baseDir yields no entries.
func List(baseDir string) ([]Entry, error) {
	dirs, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading runs dir: %w", err)
	}

	var entries []Entry
	for _, e := range dirs {
		if !e.IsDir() || e.Name() == "latest" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(baseDir, e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		entries = append(entries, Entry{ID: e.Name(), Meta: meta})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Meta.StartedAt.After(entries[j].Meta.StartedAt)
	})
	return entries, nil
}

// updateLatestLink atomically updates the "latest" symlink.
func updateLatestLink(baseDir, id string) error {
	latestPath := filepath.Join(baseDir, "latest")
	tmpPath := latestPath + ".tmp-" + id

	// Remove any stale tmp link
	os.Remove(tmpPath)

	if err := os.Symlink(id, tmpPath); err != nil {
		return fmt.Errorf("creating temp symlink: %w", err)
	}
	if err := os.Rename(tmpPath, latestPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("updating latest symlink: %w", err)
	}
	return nil
}

var nonAlphanumRe = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeSlug converts a string to a URL-friendly slug.
func sanitizeSlug(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = s[:40]
		s = strings.TrimRight(s, "-")
	}
	if s == "" {
		s = "run"
	}
	return s
}
