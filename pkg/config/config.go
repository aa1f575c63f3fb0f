// Package config provides configuration loading and management for EnvReset
package config

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Database cleanup modes
const (
	ModeDropAll  = "drop_all"
	ModeDropList = "drop_list"
	ModeTruncate = "truncate"
)

// DatabaseSettings defines MySQL connection and cleanup settings
type DatabaseSettings struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	Mode       string
	Tables     []string
	AuthPlugin string // MySQL authentication plugin (mysql_native_password, mysql_clear_password, ...)
}

// FolderSettings defines which folders get cleaned and re-populated
type FolderSettings struct {
	Clean            []string
	CopySources      []string
	CopyDestinations []string
	CopyUser         string
}

// BackupSettings defines the pre-reset snapshot behavior
type BackupSettings struct {
	Enable    bool
	BackupDir string

	// Optional offload of the finished snapshot to S3-compatible storage
	S3Enable    bool
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
	S3PathStyle bool
}

// SecuritySettings gates destructive operations behind an interactive prompt
type SecuritySettings struct {
	ConfirmDestructiveOperations bool
}

// LoggingSettings controls log verbosity
type LoggingSettings struct {
	Debug bool
}

// Settings is the immutable configuration snapshot for one run. It is loaded
// once and handed to every component; nothing mutates it afterward.
type Settings struct {
	Database DatabaseSettings
	Folders  FolderSettings
	Backup   BackupSettings
	Security SecuritySettings
	Logging  LoggingSettings
}

// Load reads the INI settings file at path and returns the typed settings
// snapshot. A missing or unreadable file is a fatal configuration error.
func Load(path string) (Settings, error) {
	// Quote handling belongs to ParseList; without PreserveSurroundedQuote
	// the ini layer would strip the quotes off a fully-quoted value before
	// the list is tokenized.
	file, err := ini.LoadSources(ini.LoadOptions{PreserveSurroundedQuote: true}, path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "failed to read settings file %s", path)
	}

	db := file.Section("database")
	folders := file.Section("folders")
	backup := file.Section("backup")
	security := file.Section("security")
	logging := file.Section("logging")

	settings := Settings{
		Database: DatabaseSettings{
			Host:       db.Key("host").MustString("localhost"),
			Port:       db.Key("port").MustInt(3306),
			User:       db.Key("user").MustString("root"),
			Password:   db.Key("password").MustString(""),
			Database:   db.Key("database_name").MustString(""),
			Mode:       db.Key("mode").MustString(ModeTruncate),
			Tables:     ParseList(db.Key("tables").MustString("")),
			AuthPlugin: db.Key("auth_plugin").MustString(""),
		},
		Folders: FolderSettings{
			Clean:            ParseList(folders.Key("clean").MustString("")),
			CopySources:      ParseList(folders.Key("copy_sources").MustString("")),
			CopyDestinations: ParseList(folders.Key("copy_destinations").MustString("")),
			CopyUser:         folders.Key("copy_user").MustString(""),
		},
		Backup: BackupSettings{
			Enable:      backup.Key("enable").MustBool(true),
			BackupDir:   backup.Key("backup_dir").MustString(""),
			S3Enable:    backup.Key("s3_enable").MustBool(false),
			S3Bucket:    backup.Key("s3_bucket").MustString(""),
			S3Region:    backup.Key("s3_region").MustString(""),
			S3Endpoint:  backup.Key("s3_endpoint").MustString(""),
			S3AccessKey: backup.Key("s3_access_key").MustString(""),
			S3SecretKey: backup.Key("s3_secret_key").MustString(""),
			S3Prefix:    backup.Key("s3_prefix").MustString(""),
			S3PathStyle: backup.Key("s3_path_style").MustBool(false),
		},
		Security: SecuritySettings{
			ConfirmDestructiveOperations: security.Key("confirm_destructive_operations").MustBool(true),
		},
		Logging: LoggingSettings{
			Debug: logging.Key("debug").MustBool(false),
		},
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

// Validate checks the loaded settings for configurations that can never work.
// Soft mismatches (list lengths, destinations missing from the clean list)
// are handled at runtime with warnings instead.
func (s Settings) Validate() error {
	if s.Database.Port <= 0 || s.Database.Port > 65535 {
		return errors.Errorf("database port %d is out of range", s.Database.Port)
	}
	if s.Backup.S3Enable && s.Backup.S3Bucket == "" {
		return errors.New("backup.s3_enable is set but backup.s3_bucket is empty")
	}
	return nil
}

// ParseList splits a comma separated value into trimmed tokens. Tokens may be
// wrapped in single or double quotes to protect embedded commas; quoted and
// bare tokens can be mixed freely. Empty tokens are dropped.
func ParseList(value string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
	)

	flush := func() {
		token := strings.TrimSpace(cur.String())
		cur.Reset()
		if token != "" {
			tokens = append(tokens, token)
		}
	}

	for _, r := range value {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			if strings.TrimSpace(cur.String()) == "" {
				// Opening quote; whatever was buffered is leading whitespace.
				cur.Reset()
				quote = r
			} else {
				cur.WriteRune(r)
			}
		case r == ',':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return tokens
}
