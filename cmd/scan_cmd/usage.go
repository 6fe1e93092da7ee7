package scan_cmd

import L "filepipe/logger"

const usageStr string = `
USAGE
filepipe scan [OPTIONS]

DESCRIPTION
Scans every enabled source once and records new and changed files with an
enabled extension as waiting. Known files that did not change are skipped,
so running scan twice in a row discovers nothing the second time.
A source that cannot be reached is reported and does not stop the others.

OPTIONS
--async
Scan in the background and show progress while waiting.

--json
Print the scan result as JSON.

--config, -c <path>
Path to config.json.

--log-level, -L <log-level>
Specify log output level.

EXAMPLES
1. Scan and print a summary -
filepipe scan

2. Scan many sources with a progress bar -
filepipe scan --async -L info

SEE ALSO
1. filepipe help source
2. filepipe help task
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
