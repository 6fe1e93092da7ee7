package help_cmd

import L "filepipe/logger"

var usageStr string = `
USAGE
    filepipe help <command>

DESCRIPTION
    Prints usage information for a specified subcommand.

COMMANDS
    These are common filepipe commands used in various situations -
        help       Help about a subcommand
        config     Help about config.json file
        serve      Runs the processors and the scheduler until interrupted
        scan       Scans every enabled source once
        source     Adds, lists, tests and removes scan sources
        filetype   Manages which file extensions are picked up
        mapping    Maps sources to knowledge bases
        files      Lists, reprocesses and deletes file records
        pipeline   Starts, stops and inspects the processors
        task       Manages scheduled tasks
        tui        Interactive terminal user interface

EXAMPLES
    See 'filepipe help <command>' to read about a specific subcommand.

SEE ALSO
    1. filepipe help source
    2. filepipe help config
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
