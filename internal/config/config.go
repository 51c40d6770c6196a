package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/semmidev/archivist/internal/domain"
	"github.com/spf13/viper"
)

const envPrefix = "ARCHIVIST"

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type DatabaseConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Database string `mapstructure:"database"`

	// CredentialsFile is a per-user credentials file (.pgpass, .my.cnf).
	// Passwords never go on the command line.
	CredentialsFile string `mapstructure:"credentials_file"`

	// Binary overrides the dump command (pg_dump, mysqldump).
	Binary string `mapstructure:"binary"`
}

type BackupConfig struct {
	Directory string                 `mapstructure:"directory"`
	LockFile  string                 `mapstructure:"lock_file"`
	Retention domain.RetentionPolicy `mapstructure:"retention"`
}

type ArchiveConfig struct {
	Binary   string `mapstructure:"binary"`
	Level    int    `mapstructure:"level"`
	Password string `mapstructure:"password"`
}

type UploadConfig struct {
	Extensions        []string     `mapstructure:"extensions"`
	DayDelta          int          `mapstructure:"day_delta"`
	DeleteAfterUpload bool         `mapstructure:"delete_after_upload"`
	MaxWorkers        int          `mapstructure:"max_workers"`
	S3                S3Config     `mapstructure:"s3"`
	GDrive            GDriveConfig `mapstructure:"gdrive"`
}

type S3Config struct {
	Enabled            bool   `mapstructure:"enabled"`
	Endpoint           string `mapstructure:"endpoint"`
	Region             string `mapstructure:"region"`
	Bucket             string `mapstructure:"bucket"`
	Prefix             string `mapstructure:"prefix"`
	AccessKey          string `mapstructure:"access_key"`
	SecretKey          string `mapstructure:"secret_key"`
	VerifySSL          bool   `mapstructure:"verify_ssl"`
	MultipartThreshold int64  `mapstructure:"multipart_threshold"`
	MaxRetries         int    `mapstructure:"max_retries"`
}

type GDriveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// ScheduleConfig holds six-field cron specs used by the daemon command.
type ScheduleConfig struct {
	Backup string `mapstructure:"backup"`
	Upload string `mapstructure:"upload"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Every key that may come from the environment needs a default so AutomaticEnv sees it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "archivist")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "")

	v.SetDefault("database.name", "")
	v.SetDefault("database.type", "postgresql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.username", "")
	v.SetDefault("database.database", "")
	v.SetDefault("database.credentials_file", "")
	v.SetDefault("database.binary", "")

	v.SetDefault("backup.directory", "/var/db_backup")
	v.SetDefault("backup.lock_file", "")
	v.SetDefault("backup.retention.daily_days", 61)
	v.SetDefault("backup.retention.monthly_days", 365)
	v.SetDefault("backup.retention.monthly_day", 15)

	v.SetDefault("archive.binary", "7z")
	v.SetDefault("archive.level", 9)
	v.SetDefault("archive.password", "")

	v.SetDefault("upload.extensions", []string{domain.ArchiveExt})
	v.SetDefault("upload.day_delta", 3)
	v.SetDefault("upload.delete_after_upload", false)
	v.SetDefault("upload.max_workers", 3)
	v.SetDefault("upload.s3.enabled", false)
	v.SetDefault("upload.s3.endpoint", "")
	v.SetDefault("upload.s3.region", "us-east-1")
	v.SetDefault("upload.s3.bucket", "")
	v.SetDefault("upload.s3.prefix", "")
	v.SetDefault("upload.s3.access_key", "")
	v.SetDefault("upload.s3.secret_key", "")
	v.SetDefault("upload.s3.verify_ssl", true)
	v.SetDefault("upload.s3.multipart_threshold", 100*1024*1024)
	v.SetDefault("upload.s3.max_retries", 3)
	v.SetDefault("upload.gdrive.enabled", false)
	v.SetDefault("upload.gdrive.credentials_file", "")
	v.SetDefault("upload.gdrive.folder_id", "")

	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", 0)

	v.SetDefault("schedule.backup", "0 0 3 * * *")
	v.SetDefault("schedule.upload", "")
}

func (c *Config) applyDerivedDefaults() {
	if c.Database.Port == 0 {
		switch c.Database.Type {
		case "mysql":
			c.Database.Port = 3306
		default:
			c.Database.Port = 5432
		}
	}
	if c.Database.Name == "" {
		c.Database.Name = c.Database.Database
	}
	if c.App.LogFile == "" {
		c.App.LogFile = filepath.Join(c.Backup.Directory, c.App.Name+".log")
	}
	if c.Backup.LockFile == "" {
		c.Backup.LockFile = filepath.Join(c.Backup.Directory, c.App.Name+".lock")
	}
}

func (c *Config) Validate() error {
	db := c.Database
	if db.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if strings.ContainsAny(db.Name, `/\`) {
		return fmt.Errorf("database.name must not contain path separators")
	}
	switch db.Type {
	case "postgresql", "mysql":
	default:
		return fmt.Errorf("database.type: unsupported type %q", db.Type)
	}
	if db.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if db.Port < 1 || db.Port > 65535 {
		return fmt.Errorf("database.port out of range: %d", db.Port)
	}
	if db.Type == "mysql" && db.CredentialsFile == "" {
		return fmt.Errorf("database.credentials_file is required for mysql")
	}

	if c.Backup.Directory == "" {
		return fmt.Errorf("backup.directory is required")
	}
	if err := c.Backup.Retention.Validate(); err != nil {
		return fmt.Errorf("backup.retention: %w", err)
	}

	if c.Archive.Level < 0 || c.Archive.Level > 9 {
		return fmt.Errorf("archive.level must be within 0..9, got %d", c.Archive.Level)
	}
	if c.Archive.Password == "" {
		return fmt.Errorf("archive.password is required")
	}

	if c.Upload.MaxWorkers < 1 {
		return fmt.Errorf("upload.max_workers must be at least 1")
	}
	if c.Upload.S3.Enabled && c.Upload.S3.Bucket == "" {
		return fmt.Errorf("upload.s3.bucket is required when enabled")
	}
	if c.Upload.GDrive.Enabled && c.Upload.GDrive.FolderID == "" {
		return fmt.Errorf("upload.gdrive.folder_id is required when enabled")
	}
	if c.Notify.Telegram.Enabled && c.Notify.Telegram.BotToken == "" {
		return fmt.Errorf("notify.telegram.bot_token is required when enabled")
	}

	return nil
}
