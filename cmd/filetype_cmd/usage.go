package filetype_cmd

import L "filepipe/logger"

const usageStr string = `
USAGE
filepipe filetype add [--description TEXT] [--disabled] EXTENSION
filepipe filetype ls [--enabled] [--json]
filepipe filetype enable EXTENSION
filepipe filetype disable EXTENSION
filepipe filetype describe EXTENSION TEXT...
filepipe filetype rm EXTENSION

DESCRIPTION
Manages which file extensions a scan picks up. Extensions are matched case
insensitively and are stored with a leading dot, so 'MP3', 'mp3' and '.mp3'
are the same rule. A fresh database comes with rules for common audio and
text formats.

Disabling or removing a rule only affects future scans, files that were
already discovered keep being processed.

EXAMPLES
1. Pick up m4a recordings -
filepipe filetype add --description "AAC audio" m4a

2. Stop picking up markdown files -
filepipe filetype disable .md

SEE ALSO
1. filepipe help scan
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
