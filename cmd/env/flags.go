package env

import (
	"filepipe/config"
	"filepipe/file_io"
	L "filepipe/logger"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CommonFlags are accepted by every subcommand that touches the database.
type CommonFlags struct {
	configPath *string
	logLevel   *string
	colorMode  *string
}

func AddCommonFlags(fs *flag.FlagSet) *CommonFlags {
	f := &CommonFlags{
		configPath: fs.String("config", "", "Path to config.json"),
		logLevel:   fs.String("log-level", L.GetLogLevel().String(), "Set log level: debug info warn error panic silent"),
		colorMode:  fs.String("color", "auto", "Set color mode: auto always never"),
	}
	fs.StringVar(f.configPath, "c", "", "alias to -config")
	fs.StringVar(f.logLevel, "L", L.GetLogLevel().String(), "alias to -log-level")
	return f
}

// Apply sets the log level and color mode, then parses the config file.
// Without -config the default config is used, and written on first use.
func (f *CommonFlags) Apply(cfg config.Configurator) error {
	if f.logLevel != nil && *f.logLevel != "" {
		err := L.SetLevelFromString(*f.logLevel)
		if err != nil {
			return err
		}
		L.Debug(fmt.Sprintf("log level set to: %s", strings.ToUpper(*f.logLevel)))
	}
	if f.colorMode != nil && *f.colorMode != "" {
		err := L.SetColorModeFromString(*f.colorMode)
		if err != nil {
			return err
		}
	}

	configPath := ""
	if f.configPath != nil {
		configPath = *f.configPath
	}
	if configPath == "" {
		defaultPath, err := cfg.GetDefaultConfigPath()
		if err != nil {
			return err
		}
		configPath = defaultPath
	}
	configPath, err := ExpandHome(configPath)
	if err != nil {
		return err
	}
	readable, err := file_io.IsReadable(configPath)
	if err != nil || !readable {
		return fmt.Errorf("config is not readable: %s", configPath)
	}
	err = cfg.Parse(configPath)
	if err != nil {
		return err
	}
	L.Debug(fmt.Sprintf("Using config: %s", cfg.GetConfigPath()))
	return nil
}

func ExpandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~ for %s: %w", p, err)
	}
	return filepath.Join(homeDir, p[2:]), nil
}
