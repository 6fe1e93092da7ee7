package pipeline_cmd

import L "filepipe/logger"

const usageStr string = `
USAGE
filepipe pipeline start [PROCESSOR]
filepipe pipeline stop [PROCESSOR]
filepipe pipeline restart [PROCESSOR]
filepipe pipeline status [--json]
filepipe pipeline health [--json]

DESCRIPTION
Controls the processors. Without PROCESSOR the action applies to all of them.

Processors -
    audio_to_text         transcribes audio files into text files
    knowledge_processor   pushes text files into the mapped knowledge base

start and stop record the desired state. A running 'filepipe serve' starts or
stops its workers accordingly, and the next serve starts in the same state.
Statistics are reset every time a processor starts. stop lets files that are
already being processed finish.

status shows the queue size (waiting, retrying, processing and downloading
files), the worker count, the watched paths and per processor statistics.

health checks the database and reports enabled processors that are not
consuming, for example because no serve is running.

EXAMPLES
1. Start everything -
filepipe pipeline start

2. Pause transcription but keep ingesting text -
filepipe pipeline stop audio_to_text

SEE ALSO
1. filepipe help serve
2. filepipe help files
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
