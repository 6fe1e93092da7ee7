package serve_cmd

import L "filepipe/logger"

const usageStr string = `
USAGE
filepipe serve [OPTIONS]

DESCRIPTION
Runs the processors and the scheduler until interrupted -
1. Applies the desired processor state set with 'filepipe pipeline'
2. Runs enabled scheduled tasks, such as the periodic file scan
3. Picks up changes made from other terminals every few seconds

Stopping serve does not change the desired state, the next serve resumes
where it left off. Serve waits for files in flight before exiting. Files a
killed serve left in processing are marked failed with 'interrupted' on the
next start, and can be requeued with 'filepipe files reprocess --failed'.

OPTIONS
--start
Enable and start every processor before serving.

--status-interval <duration>
How often desired state and status are refreshed.
Default: 2s

--config, -c <path>
Path to config.json. See 'filepipe help config'.

--log-level, -L <log-level>
Specify log output level
Default: info
Accepted values (in order of increasing amount of output) -
silent, panic, error, warn, info, debug

--color <color-mode>
Specify output color mode.
Default: auto
Accepted values: auto, always, never

EXAMPLES
1. Serve with every processor running -
filepipe serve --start

2. Serve with debug logs and a custom config -
filepipe serve -L debug -c ~/filepipe/config.json

SEE ALSO
1. filepipe help pipeline
2. filepipe help task
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
