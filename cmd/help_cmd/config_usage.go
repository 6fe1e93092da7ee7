package help_cmd

import (
	L "filepipe/logger"
)

const configUsageStr string = `
CONFIGURATION
    Configuration file is a JSON file holding service endpoints, credentials,
    worker counts and timeouts. You could have different config.json files for
    different setups and pick one with --config.

    When you first run the program, a default config will be created for you at
    '~/.config/filepipe/config.json'. Missing keys keep their default values.

SAMPLE CONFIG

        {
            "max_file_size_mb": 500,
            "pipeline": {
                "workers_per_processor": 2,
                "poll_interval_ms": 2000,
                "batch_size": 32
            },
            "transcriber": {
                "engine": "openai",
                "api_key": "YOUR_API_KEY",
                "model": "whisper-1",
                "language": "zh"
            },
            "knowledge": {
                "endpoint": "http://localhost:8080/api/v1",
                "api_key": "YOUR_API_KEY"
            },
            "artifacts": {
                "backend": "minio",
                "minio": {
                    "endpoint": "localhost:9000",
                    "access_key": "minioadmin",
                    "secret_key": "minioadmin",
                    "bucket": "filepipe"
                }
            }
        }

OPTIONS
    database_path
        SQLite database file. Defaults to filepipe.db in ~/.config/filepipe.

    staging_dir
        Directory for local artifacts when artifacts.local_dir is not set.

    max_file_size_mb
        Larger files are skipped by scans.

    scanner.max_concurrent_sources, scanner.inspect_entries
        How many sources are scanned at once, and how many entries
        'filepipe source test' lists.

    pipeline.workers_per_processor
        Files each processor works on at the same time.

    pipeline.poll_interval_ms, pipeline.batch_size
        How often idle processors look for waiting files, and how many they
        look at each time.

    timeouts.scan_seconds, timeouts.ftp_connect_seconds,
    timeouts.fetch_seconds, timeouts.transcribe_seconds,
    timeouts.ingest_seconds
        Upper bounds of each step. All must be positive.

    transcriber.engine
        Supported values: openai. Any OpenAI compatible server works
        with transcriber.base_url.

    transcriber.language, transcriber.model, transcriber.punctuation,
    transcriber.diarization, transcriber.hotwords, transcriber.threshold
        Passed on every transcription. With punctuation set to false the
        transcript is stripped of punctuation. threshold is between 0 and 1.

    knowledge.endpoint, knowledge.api_key
        Knowledge base service documents are uploaded to.

    knowledge.requests_per_second, knowledge.burst
        Upload rate limit shared by all workers. 0 means unlimited.

    artifacts.backend
        Where transcripts are stored. Supported values: local, minio.

    scheduler.scan_interval_seconds
        Default interval of the file_scan task, before it is changed with
        'filepipe task update'.

`

func ConfigUsage() string {
	return configUsageStr
}

func ConfigPrintUsage() {
	L.Print(configUsageStr)
}
