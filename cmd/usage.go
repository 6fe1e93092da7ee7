package cmd

import L "filepipe/logger"

var usageStr string = `
USAGE
filepipe [-v | -version] [-h | -help] <command> [<args>]

DESCRIPTION
filepipe watches local directories and FTP servers for new files, transcribes
audio recordings and pushes text documents into knowledge bases.

COMMANDS
These are common filepipe commands used in various situations -
serve      Runs the processors and the scheduler until interrupted
scan       Scans every enabled source once
source     Adds, lists, tests and removes scan sources
filetype   Manages which file extensions are picked up
mapping    Maps sources to knowledge bases
files      Lists, reprocesses and deletes file records
pipeline   Starts, stops and inspects the processors
task       Manages scheduled tasks
tui        Interactive terminal user interface
help       Help about a subcommand
version    Prints version

EXAMPLES
See 'filepipe help <command>' to read about a specific subcommand.

SEE ALSO
1. filepipe help source
2. filepipe help serve
3. filepipe help config
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
