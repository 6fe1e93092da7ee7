package source_cmd

import L "filepipe/logger"

const usageStr string = `
USAGE
filepipe source add-local [OPTIONS] NAME PATH
filepipe source add-ftp [OPTIONS] NAME HOST
filepipe source ls [--enabled] [--json]
filepipe source enable NAME
filepipe source disable NAME
filepipe source rm [--force] NAME
filepipe source test [--json] [NAME]

DESCRIPTION
Manages the sources scanned for files. A source is a local directory or a
directory on an FTP server. Only enabled sources are scanned.

Source names are 1-64 characters: letters, digits, '.', '_' and '-'.
The name is also used as the key of its knowledge base mapping.

OPTIONS
add-local:
--recursive
Scan subdirectories too. Default: true

add-ftp:
--port <port>        FTP port. Default: 21
--user <username>    Default: anonymous
--password <pass>    Default: empty
--dir <remote dir>   Absolute remote directory. Default: /

add-local, add-ftp:
--disabled
Add the source without enabling it.

rm:
--force
Remove a source that already has file records. The records are kept and
marked as tombstoned instead of being deleted.

test:
Connects to the source (or every enabled source) and lists its first entries
without recording anything.

EXAMPLES
1. Watch a local directory -
filepipe source add-local notes ~/Documents/notes

2. Watch a recorder share on an FTP server -
filepipe source add-ftp --dir /rec --user rec --password secret recorder 10.0.0.5

3. Check every enabled source is reachable -
filepipe source test

SEE ALSO
1. filepipe help mapping
2. filepipe help scan
`

func Usage() string {
	return usageStr
}

func PrintUsage() {
	L.Print(usageStr)
}
