package scheduler

import (
	"context"
	"filepipe/scanner"
	"time"
)

const FILE_SCAN = "file_scan"

const DEFAULT_SCAN_INTERVAL = 300 * time.Second

// FileScanTask scans every enabled source. It starts disabled, an operator
// turns it on once sources are configured.
func FileScanTask(sc *scanner.Scanner, interval time.Duration) TaskDef {
	if interval < time.Second {
		interval = DEFAULT_SCAN_INTERVAL
	}
	return TaskDef{
		Id:              FILE_SCAN,
		Name:            "File scan",
		Description:     "Scan enabled sources for new and changed files",
		DefaultEnabled:  false,
		DefaultInterval: interval,
		Run: func(ctx context.Context) (any, error) {
			return sc.Scan(ctx)
		},
	}
}
