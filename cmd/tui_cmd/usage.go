package tui_cmd

import L "filepipe/logger"

const usageStr string = `
USAGE
filepipe tui [OPTIONS]

DESCRIPTION
Launches the interactive Terminal User Interface for watching sources and
the files they produced. The view refreshes every second.

Keys -
    1, 2, Tab       focus the source list or the content panel
    3/s, 4/f        switch between the status and the files tab
    j/k             move the cursor
    r               reprocess the selected failed or skipped file
    p               start or stop the pipeline
    q               quit

Like 'filepipe pipeline', p only records the desired state, a running
'filepipe serve' applies it.

OPTIONS
    -config, -c PATH     Use config at PATH
    -log-level, -L LVL   Log level (debug, info, warn, error)
    -color MODE          Color mode (auto, always, never)
`

func PrintUsage() {
	L.Print(usageStr)
}
