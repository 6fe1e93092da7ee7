package mapping_cmd

import L "filepipe/logger"

const usageStr string = `
USAGE
filepipe mapping set [--name NAME] [--disabled] SOURCE KNOWLEDGE_BASE_ID
filepipe mapping import FILE
filepipe mapping ls [--json]
filepipe mapping rm ID

DESCRIPTION
Maps scan sources to knowledge bases. Text files, including transcripts of
audio files, are pushed to the knowledge base their source is mapped to.
A text file whose source has no enabled mapping fails with 'no_mapping' and
can be reprocessed once a mapping exists.

Every source has at most one mapping. 'set' on a mapped source replaces its
mapping.

'import' reads a JSON array of mappings and saves all of them or none:
    [
        {"scan_config_name": "recorder", "knowledge_base_id": "kb-1",
         "knowledge_base_name": "Meetings", "enabled": true}
    ]

EXAMPLES
1. Send everything from 'recorder' to knowledge base kb-1 -
filepipe mapping set --name Meetings recorder kb-1

SEE ALSO
1. filepipe help source
2. filepipe help files
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
