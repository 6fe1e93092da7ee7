package pipeline

import (
	"filepipe/database/model"
	"fmt"
	"strings"
)

// INTERRUPTED is the error message of records recovered at startup
const INTERRUPTED = "interrupted"

type Action string

const (
	ACTION_START   Action = "start"
	ACTION_STOP    Action = "stop"
	ACTION_RESTART Action = "restart"
)

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ACTION_START, ACTION_STOP, ACTION_RESTART:
		return a, nil
	default:
		return "", fmt.Errorf("unknown pipeline action: %s. supported actions: start, stop, restart", s)
	}
}

type ControlResult struct {
	Action  Action            `json:"action"`
	Status  string            `json:"status"` // running or stopped, after the action
	Results map[string]string `json:"results"`
}

type ProcessorInfo struct {
	Name      string `json:"name"`
	Topic     string `json:"topic"`
	Enabled   bool   `json:"enabled"`
	Consuming bool   `json:"consuming"`
}

type Status struct {
	Running              bool                            `json:"running"`
	QueueSize            int64                           `json:"queue_size"`
	WorkerCount          int                             `json:"worker_count"`
	WatchPaths           []string                        `json:"watch_paths"`
	ProcessorStatistics  map[string]model.ProcessorStats `json:"processor_statistics"`
	RegisteredProcessors []ProcessorInfo                 `json:"registered_processors"`
}

func (s *Status) String() string {
	var b strings.Builder
	state := "stopped"
	if s.Running {
		state = "running"
	}
	fmt.Fprintf(&b, "[Pipeline]\n  Status: %s\n  Queue size: %d\n  Workers: %d\n", state, s.QueueSize, s.WorkerCount)
	b.WriteString("  Watch paths:\n")
	for _, p := range s.WatchPaths {
		fmt.Fprintf(&b, "    %s\n", p)
	}
	b.WriteString("  Processors:\n")
	for _, p := range s.RegisteredProcessors {
		st := s.ProcessorStatistics[p.Name]
		fmt.Fprintf(&b, "    %-20s topic=%-13s enabled=%-5t consuming=%-5t processed=%d success=%d failed=%d skipped=%d\n",
			p.Name, p.Topic, p.Enabled, p.Consuming, st.Processed, st.Success, st.Failed, st.Skipped)
	}
	return b.String()
}

type HealthStatus string

const (
	HEALTHY   HealthStatus = "healthy"
	WARNING   HealthStatus = "warning"
	UNHEALTHY HealthStatus = "unhealthy"
)

func worse(a HealthStatus, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{HEALTHY: 0, WARNING: 1, UNHEALTHY: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

type ComponentHealth struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

type Health struct {
	OverallStatus HealthStatus               `json:"overall_status"`
	Components    map[string]ComponentHealth `json:"components"`
}

type FilePage struct {
	Files []model.FileRecord `json:"files"`
	Total int64              `json:"total"`
}

type FileStatistics struct {
	Total        int64                      `json:"total"`
	ByStatus     map[model.FileStatus]int64 `json:"by_status"`
	BySourceType map[model.SourceType]int64 `json:"by_source_type"`
	QueueSize    int64                      `json:"queue_size"`
}

type FileDetail struct {
	Record model.FileRecord  `json:"record"`
	Events []model.FileEvent `json:"events"`
}

type FailedFile struct {
	FileId string `json:"file_id"`
	Error  string `json:"error"`
}

type ReprocessResult struct {
	ReprocessedFiles []string     `json:"reprocessed_files"`
	FailedFiles      []FailedFile `json:"failed_files"`
	TotalCount       int          `json:"total_count"`
	SuccessCount     int          `json:"success_count"`
}
