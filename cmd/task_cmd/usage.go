package task_cmd

import L "filepipe/logger"

const usageStr string = `
USAGE
filepipe task ls [--json]
filepipe task show [--json] TASK_ID
filepipe task update [--enabled true|false] [--interval SECONDS] TASK_ID
filepipe task start TASK_ID
filepipe task stop TASK_ID
filepipe task run TASK_ID
filepipe task executions [--limit N] [--json] TASK_ID

DESCRIPTION
Manages scheduled tasks run by 'filepipe serve'.

Tasks -
    file_scan   scans every enabled source. Disabled by default, every 300s.

A task runs at most once at a time. A tick that comes while the previous run
is still going is skipped, not queued. Every run is recorded as an execution
with its result or error.

start and stop enable and disable a task. stop does not interrupt a run in
progress. run starts a run right away in this process and waits for it.
Changes to enabled and interval survive restarts.

EXAMPLES
1. Scan every 10 minutes -
filepipe task update --enabled true --interval 600 file_scan

2. Show the last 5 scans -
filepipe task executions --limit 5 file_scan

SEE ALSO
1. filepipe help serve
2. filepipe help scan
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
