package scanner

import (
	"context"
	"filepipe/config"
	"filepipe/database/model"

	"golang.org/x/sync/errgroup"
)

// Diagnostic is the outcome of a dry-run connection to a source.
type Diagnostic struct {
	Source    string   `json:"source"`
	Kind      string   `json:"kind"`
	WatchPath string   `json:"watch_path"`
	Reachable bool     `json:"reachable"`
	Entries   []string `json:"entries"`
	LatencyMs int64    `json:"latency_ms"`
	Error     string   `json:"error,omitempty"`
}

// TestSource connects to src and lists the first entries of its root
// without touching file records.
func (s *Scanner) TestSource(ctx context.Context, src *model.ScanSource) Diagnostic {
	cfg := config.Get()
	d := Diagnostic{
		Source:    src.Name,
		Kind:      string(src.Kind),
		WatchPath: src.WatchPath(),
		Entries:   []string{},
	}
	tr, err := s.dial(ctx, src, cfg.Timeouts.FtpConnect())
	if err != nil {
		d.Error = err.Error()
		return d
	}
	defer tr.Close()

	insp, err := tr.Inspect(ctx, cfg.Scanner.InspectEntries)
	if insp != nil {
		d.LatencyMs = insp.Latency.Milliseconds()
		for _, e := range insp.Entries {
			d.Entries = append(d.Entries, e.Name)
		}
	}
	if err != nil {
		d.Error = err.Error()
		return d
	}
	d.Reachable = insp.Reachable
	return d
}

// TestAll runs TestSource for every enabled source.
func (s *Scanner) TestAll(ctx context.Context) ([]Diagnostic, error) {
	sources, err := s.registry.ListSources(ctx, true)
	if err != nil {
		return nil, err
	}
	diagnostics := make([]Diagnostic, len(sources))
	g := new(errgroup.Group)
	g.SetLimit(config.Get().Scanner.MaxConcurrentSources)
	for i := range sources {
		g.Go(func() error {
			diagnostics[i] = s.TestSource(ctx, &sources[i])
			return nil
		})
	}
	_ = g.Wait()
	return diagnostics, nil
}
