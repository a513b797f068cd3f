package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server configuration
type WebConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Secret       string `yaml:"secret"` // session cookie signing key, random per start when empty
	SecureCookie bool   `yaml:"secure_cookie"`
}

// ContentConfig locates the JSON content store
type ContentConfig struct {
	Root string `yaml:"root"` // directory holding products/ and categories/
}

// AdminConfig admin credentials and login policy
type AdminConfig struct {
	Username         string `yaml:"username"`
	PasswordHash     string `yaml:"password_hash"`
	SessionTimeout   int    `yaml:"session_timeout"`    // seconds
	MaxLoginAttempts int    `yaml:"max_login_attempts"` // per client IP per lockout window
	LockoutTime      int    `yaml:"lockout_time"`       // seconds
}

// LogConfig Log configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type AppConfig struct {
	System  SysConfig     `yaml:"system"`
	Web     WebConfig     `yaml:"web"`
	Content ContentConfig `yaml:"content"`
	Admin   AdminConfig   `yaml:"admin"`
	Logger  LogConfig     `yaml:"logger"`
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetSessionDir() string {
	return path.Join(c.System.Workdir, "sessions")
}

// GetRateLimitDB is the bbolt file holding login attempt records
func (c *AppConfig) GetRateLimitDB() string {
	return path.Join(c.GetDataDir(), "ratelimit.db")
}

// GetActivityLogFile is the append-only admin audit trail
func (c *AppConfig) GetActivityLogFile() string {
	return path.Join(c.GetLogDir(), "activity.log")
}

func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Admin.SessionTimeout) * time.Second
}

func (c *AppConfig) LockoutWindow() time.Duration {
	return time.Duration(c.Admin.LockoutTime) * time.Second
}

// InitDirs creates the working directories
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetDataDir(), c.GetLogDir(), c.GetSessionDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// DefaultAppConfig returns the built-in configuration
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "catalogd",
			Location: "Asia/Dubai",
			Workdir:  "/var/catalogd",
			Debug:    false,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Content: ContentConfig{
			Root: "./public",
		},
		Admin: AdminConfig{
			Username:         "admin",
			SessionTimeout:   3600,
			MaxLoginAttempts: 5,
			LockoutTime:      1800,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: false,
			Filename:   "/var/catalogd/logs/catalogd.log",
		},
	}
}

// LoadConfig reads the YAML file (when given), then a .env file in the
// working directory, then CATALOGD_* environment variables.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects login policy values that would expire every session or
// lock out every login.
func (c *AppConfig) Validate() error {
	switch {
	case c.Admin.SessionTimeout <= 0:
		return errors.Errorf("admin.session_timeout must be positive, got %d", c.Admin.SessionTimeout)
	case c.Admin.MaxLoginAttempts <= 0:
		return errors.Errorf("admin.max_login_attempts must be positive, got %d", c.Admin.MaxLoginAttempts)
	case c.Admin.LockoutTime <= 0:
		return errors.Errorf("admin.lockout_time must be positive, got %d", c.Admin.LockoutTime)
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("CATALOGD_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvValue("CATALOGD_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("CATALOGD_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("CATALOGD_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("CATALOGD_WEB_PORT", &cfg.Web.Port)
	setEnvValue("CATALOGD_WEB_SECRET", &cfg.Web.Secret)
	setEnvBoolValue("CATALOGD_WEB_SECURE_COOKIE", &cfg.Web.SecureCookie)

	setEnvValue("CATALOGD_CONTENT_ROOT", &cfg.Content.Root)

	setEnvValue("CATALOGD_ADMIN_USERNAME", &cfg.Admin.Username)
	setEnvValue("CATALOGD_ADMIN_PASSWORD_HASH", &cfg.Admin.PasswordHash)
	setEnvIntValue("CATALOGD_ADMIN_SESSION_TIMEOUT", &cfg.Admin.SessionTimeout)
	setEnvIntValue("CATALOGD_ADMIN_MAX_LOGIN_ATTEMPTS", &cfg.Admin.MaxLoginAttempts)
	setEnvIntValue("CATALOGD_ADMIN_LOCKOUT_TIME", &cfg.Admin.LockoutTime)

	setEnvValue("CATALOGD_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("CATALOGD_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("CATALOGD_LOGGER_FILENAME", &cfg.Logger.Filename)
}

func setEnvValue(name string, val *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	if i, err := cast.ToIntE(v); err == nil {
		*val = i
	}
}
