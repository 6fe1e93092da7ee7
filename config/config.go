package config

import (
	"encoding/json"
	"filepipe/file_io"
	L "filepipe/logger"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Scanner struct {
	MaxConcurrentSources int `json:"max_concurrent_sources"`
	InspectEntries       int `json:"inspect_entries"`
}

type Pipeline struct {
	WorkersPerProcessor int `json:"workers_per_processor"`
	PollIntervalMs      int `json:"poll_interval_ms"`
	BatchSize           int `json:"batch_size"`
}

// all values are in seconds
type Timeouts struct {
	ScanSeconds       int `json:"scan_seconds"`
	FtpConnectSeconds int `json:"ftp_connect_seconds"`
	FetchSeconds      int `json:"fetch_seconds"`
	TranscribeSeconds int `json:"transcribe_seconds"`
	IngestSeconds     int `json:"ingest_seconds"`
}

type Transcriber struct {
	Engine      TranscriberEngine `json:"engine"`
	ApiKey      string            `json:"api_key"`
	BaseUrl     string            `json:"base_url,omitempty"`
	Model       string            `json:"model"`
	Language    string            `json:"language"`
	Punctuation bool              `json:"punctuation"`
	Diarization bool              `json:"diarization"`
	Hotwords    []string          `json:"hotwords,omitempty"`
	Threshold   float64           `json:"threshold"`
}

type Knowledge struct {
	Endpoint          string  `json:"endpoint"`
	ApiKey            string  `json:"api_key"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

type Minio struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	UseSSL    bool   `json:"use_ssl"`
}

type Artifacts struct {
	Backend  ArtifactBackend `json:"backend"`
	LocalDir string          `json:"local_dir,omitempty"`
	Minio    *Minio          `json:"minio,omitempty"`
}

type Scheduler struct {
	ScanIntervalSeconds int `json:"scan_interval_seconds"`
}

type Config struct {
	DatabasePath  string      `json:"database_path,omitempty"`
	StagingDir    string      `json:"staging_dir,omitempty"`
	MaxFileSizeMB int64       `json:"max_file_size_mb"`
	Scanner       Scanner     `json:"scanner"`
	Pipeline      Pipeline    `json:"pipeline"`
	Timeouts      Timeouts    `json:"timeouts"`
	Transcriber   Transcriber `json:"transcriber"`
	Knowledge     Knowledge   `json:"knowledge"`
	Artifacts     Artifacts   `json:"artifacts"`
	Scheduler     Scheduler   `json:"scheduler"`
}

var config Config = Default()
var configPath string

func Parse(configPathArg string) error {
	file, err := os.Open(configPathArg)
	if err != nil {
		return fmt.Errorf("config: could not open config file for reading: %w", err)
	}
	defer file.Close()
	// missing keys keep their default values
	parsed := Default()
	decoder := json.NewDecoder(file)
	err = decoder.Decode(&parsed)
	if err != nil {
		return fmt.Errorf("config: malformed config %s: %w", configPathArg, err)
	}
	err = validate(&parsed)
	if err != nil {
		return fmt.Errorf("config: could not validate config: %w", err)
	}
	config = parsed

	configPath, err = filepath.Abs(configPathArg)
	if err != nil {
		return err
	}
	return nil
}

func Get() *Config {
	return &config
}

func GetDefaultConfigDir() (string, error) {
	configDir, configDirError := os.UserConfigDir()
	homeDir, homeDirError := os.UserHomeDir()
	if configDirError != nil && homeDirError != nil {
		return "", fmt.Errorf("config: cannot find config dir: Config: %w, Home: %w", configDirError, homeDirError)
	}
	var dir string
	if configDirError == nil {
		dir = configDir
	} else {
		dir = homeDir
	}
	dir, err := filepath.Abs(filepath.Join(dir, "filepipe"))
	if err != nil {
		return "", err
	}
	L.Debug(fmt.Sprintf("Using config directory: %s", dir))
	err = os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return "", err
	}
	return dir, nil
}

func GetDefaultConfigPath() (string, error) {
	configDir, err := GetDefaultConfigDir()
	if err != nil {
		return "", err
	}
	configFilePath := filepath.Join(configDir, "config.json")
	exists, err := file_io.Exists(configFilePath)
	if err != nil {
		return "", err
	}
	if !exists {
		_, err = file_io.WriteToFile(configFilePath, []byte(DumpDefaultConfig()), file_io.WRITE_OVERWRITE)
		if err != nil {
			return "", err
		}
		L.Info(fmt.Sprintf("Default config written to %s", configFilePath))
	}
	return configFilePath, nil
}

func GetConfigPath() string {
	return configPath
}

func (c *Config) ToJson() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Pipeline.PollIntervalMs) * time.Millisecond
}

func (t Timeouts) Scan() time.Duration       { return seconds(t.ScanSeconds) }
func (t Timeouts) FtpConnect() time.Duration { return seconds(t.FtpConnectSeconds) }
func (t Timeouts) Fetch() time.Duration      { return seconds(t.FetchSeconds) }
func (t Timeouts) Transcribe() time.Duration { return seconds(t.TranscribeSeconds) }
func (t Timeouts) Ingest() time.Duration     { return seconds(t.IngestSeconds) }

func seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func Default() Config {
	return Config{
		MaxFileSizeMB: 500,
		Scanner: Scanner{
			MaxConcurrentSources: 4,
			InspectEntries:       10,
		},
		Pipeline: Pipeline{
			WorkersPerProcessor: 2,
			PollIntervalMs:      2000,
			BatchSize:           32,
		},
		Timeouts: Timeouts{
			ScanSeconds:       600,
			FtpConnectSeconds: 10,
			FetchSeconds:      120,
			TranscribeSeconds: 900,
			IngestSeconds:     120,
		},
		Transcriber: Transcriber{
			Engine:      ENGINE_OPENAI,
			ApiKey:      "",
			Model:       "whisper-1",
			Language:    "zh",
			Punctuation: true,
			Diarization: false,
			Threshold:   0,
		},
		Knowledge: Knowledge{
			Endpoint:          "http://localhost:8080/api/v1",
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Artifacts: Artifacts{
			Backend: AB_LOCAL,
		},
		Scheduler: Scheduler{
			ScanIntervalSeconds: 300,
		},
	}
}

func DumpDefaultConfig() string {
	defaultConfig := Default()
	configStr, err := defaultConfig.ToJson()
	if err != nil {
		return ""
	}
	return configStr
}

func validate(c *Config) error {
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max_file_size_mb must be positive")
	}
	if c.Scanner.MaxConcurrentSources <= 0 {
		return fmt.Errorf("scanner.max_concurrent_sources must be positive")
	}
	if c.Pipeline.WorkersPerProcessor <= 0 {
		return fmt.Errorf("pipeline.workers_per_processor must be positive")
	}
	if c.Pipeline.PollIntervalMs <= 0 {
		return fmt.Errorf("pipeline.poll_interval_ms must be positive")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batch_size must be positive")
	}
	for name, v := range map[string]int{
		"scan_seconds":        c.Timeouts.ScanSeconds,
		"ftp_connect_seconds": c.Timeouts.FtpConnectSeconds,
		"fetch_seconds":       c.Timeouts.FetchSeconds,
		"transcribe_seconds":  c.Timeouts.TranscribeSeconds,
		"ingest_seconds":      c.Timeouts.IngestSeconds,
	} {
		if v <= 0 {
			return fmt.Errorf("timeouts.%s must be positive", name)
		}
	}
	if c.Scheduler.ScanIntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.scan_interval_seconds must be positive")
	}
	if c.Knowledge.RequestsPerSecond < 0 || c.Knowledge.Burst < 0 {
		return fmt.Errorf("knowledge rate limits cannot be negative")
	}
	if c.Transcriber.Threshold < 0 || c.Transcriber.Threshold > 1 {
		return fmt.Errorf("transcriber.threshold must be between 0 and 1")
	}
	if c.Artifacts.Backend == AB_MINIO {
		if c.Artifacts.Minio == nil {
			return fmt.Errorf("artifacts.minio is required for the minio backend")
		}
		if strings.TrimSpace(c.Artifacts.Minio.Endpoint) == "" || c.Artifacts.Minio.Bucket == "" {
			return fmt.Errorf("artifacts.minio.endpoint and artifacts.minio.bucket are required")
		}
	}
	return nil
}
