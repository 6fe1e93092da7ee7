package files_cmd

import L "filepipe/logger"

const usageStr string = `
USAGE
filepipe files ls [OPTIONS]
filepipe files show [--json] FILE_ID
filepipe files stats [--json]
filepipe files reprocess [--failed] [FILE_ID...]
filepipe files rm FILE_ID...

DESCRIPTION
Inspects and manages file records. Every discovered file has one record that
moves through these statuses -
    wait         discovered, waiting for a processor
    processing   claimed by a processor
    downloading  content is being fetched from an FTP server
    success      processed
    failed       processing failed, see the error
    retrying     requeued by reprocess

Transcripts of audio files are recorded as files of source type 'stt' that
point back to the recording they were made from.

OPTIONS
ls:
--status <status>        Only files with this status
--source <name>          Only files of this source
--source-type <type>     local, ftp or stt
--name <text>            Only files whose name contains text
--limit <n>              Page size. Default: 50
--offset <n>             Files to skip. Default: 0

reprocess:
Puts failed files back in the queue, clears their error and counts a retry.
Waiting and retrying files are left waiting. Files that are being processed
or already succeeded are reported as not_eligible, unknown ids as not_found.
--failed
Reprocess every failed file.

rm:
Deletes file records and their history whatever their status. A file
deleted while being processed keeps being processed, its result is dropped.

--json
Print the output of ls, show, stats or reprocess as JSON.

EXAMPLES
1. List failed recordings of the 'recorder' source -
filepipe files ls --status failed --source recorder

2. Retry everything that failed -
filepipe files reprocess --failed

SEE ALSO
1. filepipe help pipeline
2. filepipe help mapping
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
