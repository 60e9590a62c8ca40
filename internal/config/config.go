package config

import (
	"fmt"
	"strings"
	"time"

	"artifact-uploader/internal/logger"
	"artifact-uploader/internal/uploader"
	apperrors "artifact-uploader/pkg/errors"
	"artifact-uploader/pkg/validator"

	"github.com/spf13/pflag"
)

const (
	FlagBaseURL    = "base-url"
	FlagRepo       = "repo"
	FlagFile       = "file"
	FlagTargetPath = "target-path"
	FlagUsername   = "username"
	FlagPassword   = "password"
	FlagTimeout    = "timeout"
	FlagLogLevel   = "log-level"
	FlagLogFormat  = "log-format"
	FlagLogFile    = "log-file"
)

const (
	defaultTimeout   = time.Duration(0)
	defaultLogLevel  = logger.LevelWarn
	defaultLogFormat = logger.FormatText

	usageBaseURL    = "Root URL of the artifact server"
	usageRepo       = "Repository name segment"
	usageFile       = "Path to local file to upload"
	usageTargetPath = "Destination path segment within the repository"
	usageUsername   = "Basic-auth username"
	usagePassword   = "Basic-auth password"
	usageTimeout    = "Overall request timeout, e.g. 30s (0 disables)"
	usageLogLevel   = "Diagnostic log level: debug, info, warn, error"
	usageLogFormat  = "Diagnostic log format: text, json"
	usageLogFile    = "Write diagnostics to this rotated file instead of stderr"
)

// RequiredFlags lists the flags an invocation must always pass.
var RequiredFlags = []string{
	FlagBaseURL,
	FlagRepo,
	FlagFile,
	FlagTargetPath,
	FlagUsername,
	FlagPassword,
}

type Config struct {
	Upload uploader.Request

	Timeout   time.Duration `flag:"timeout" validate:"gte=0"`
	LogLevel  string        `flag:"log-level" validate:"oneof=debug info warn error"`
	LogFormat string        `flag:"log-format" validate:"oneof=text json"`
	LogFile   string        `flag:"log-file"`
}

// Default returns a Config holding every optional default.
func Default() *Config {
	return &Config{
		Timeout:   defaultTimeout,
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

// BindFlags registers every flag on fs, writing parsed values into c.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Upload.BaseURL, FlagBaseURL, c.Upload.BaseURL, usageBaseURL)
	fs.StringVar(&c.Upload.Repository, FlagRepo, c.Upload.Repository, usageRepo)
	fs.StringVar(&c.Upload.LocalFilePath, FlagFile, c.Upload.LocalFilePath, usageFile)
	fs.StringVar(&c.Upload.TargetPath, FlagTargetPath, c.Upload.TargetPath, usageTargetPath)
	fs.StringVar(&c.Upload.Username, FlagUsername, c.Upload.Username, usageUsername)
	fs.StringVar(&c.Upload.Password, FlagPassword, c.Upload.Password, usagePassword)
	fs.DurationVar(&c.Timeout, FlagTimeout, c.Timeout, usageTimeout)
	fs.StringVar(&c.LogLevel, FlagLogLevel, c.LogLevel, usageLogLevel)
	fs.StringVar(&c.LogFormat, FlagLogFormat, c.LogFormat, usageLogFormat)
	fs.StringVar(&c.LogFile, FlagLogFile, c.LogFile, usageLogFile)
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)

	if problems := validator.Flags(c); len(problems) > 0 {
		return apperrors.InvalidInput(messages.invalidConfiguration(problems))
	}
	return nil
}

// Logger returns the logger configuration derived from c.
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		File:   c.LogFile,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("base-url=%s repo=%s target-path=%s file=%s username=%s timeout=%s",
		c.Upload.BaseURL, c.Upload.Repository, c.Upload.TargetPath,
		c.Upload.LocalFilePath, c.Upload.Username, c.Timeout)
}
