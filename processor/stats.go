package processor

import (
	"filepipe/database/model"
	"sync/atomic"
)

type Stats struct {
	processed atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

func (s *Stats) Snapshot() model.ProcessorStats {
	return model.ProcessorStats{
		Processed: s.processed.Load(),
		Success:   s.success.Load(),
		Failed:    s.failed.Load(),
		Skipped:   s.skipped.Load(),
	}
}

func (s *Stats) Reset() {
	s.processed.Store(0)
	s.success.Store(0)
	s.failed.Store(0)
	s.skipped.Store(0)
}
