package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/supporttools/EnvReset/pkg/backup"
	"github.com/supporttools/EnvReset/pkg/config"
	"github.com/supporttools/EnvReset/pkg/database"
	"github.com/supporttools/EnvReset/pkg/fsops"
	"github.com/supporttools/EnvReset/pkg/logging"
	"github.com/supporttools/EnvReset/pkg/prompt"
	"github.com/supporttools/EnvReset/pkg/propagate"
	"github.com/supporttools/EnvReset/pkg/runas"
	s3storage "github.com/supporttools/EnvReset/pkg/storage/s3"
	"github.com/supporttools/EnvReset/pkg/version"
)

func main() {
	var (
		configPath string
		assumeYes  bool
	)

	rootCmd := &cobra.Command{
		Use:   "envreset",
		Short: "Reset a development or staging environment",
		Long: "EnvReset backs up and resets a development/staging environment: it snapshots\n" +
			"the configured folders, cleans MySQL tables according to the configured mode,\n" +
			"empties the configured folders, and re-populates them from paired sources.\n" +
			"All behavior is driven by the settings file.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, assumeYes)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "settings.ini", "path to the settings file")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every confirmation prompt")
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, assumeYes bool) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "create the settings file from settings.ini.example before running a reset")
	}

	log := logging.SetupLogging(settings.Logging.Debug)

	log.Info("starting environment reset")
	logSummary(log, settings)

	// A copy user means every copy goes through external tools; resolve them
	// before anything destructive happens.
	if settings.Folders.CopyUser != "" {
		if err := runas.CheckTools(); err != nil {
			log.Errorf("copy_user is configured but delegation tools are missing: %v", err)
			os.Exit(1)
		}
	}

	confirm := prompt.New(assumeYes || !settings.Security.ConfirmDestructiveOperations)

	var backupPath string
	if settings.Backup.Enable {
		log.Info("=== backup ===")
		backupPath = runBackup(settings, log)
	} else {
		log.Info("backup is disabled in settings")
	}

	cleaner := database.NewCleaner(settings.Database, confirm, log)

	log.Info("=== database state before cleanup ===")
	cleaner.ReportState()

	log.Infof("=== database cleanup (mode: %s) ===", settings.Database.Mode)
	cleaner.Clean()

	log.Info("=== database state after cleanup ===")
	cleaner.ReportState()

	if len(settings.Folders.Clean) > 0 {
		log.Info("=== filesystem cleanup ===")
		fsops.NewCleaner(settings.Folders.Clean, confirm, log).Clean()
	} else {
		log.Info("no folders configured for cleaning")
	}

	if len(settings.Folders.CopySources) > 0 && len(settings.Folders.CopyDestinations) > 0 {
		log.Info("=== copying into cleaned folders ===")
		propagate.New(settings.Folders, log).Run()
	} else {
		log.Info("no folders configured for copying")
	}

	log.Info("environment reset finished")
	if backupPath != "" {
		log.Infof("backup stored in %s", backupPath)
	}

	return nil
}

// runBackup snapshots the union of the clean list and the copy sources.
func runBackup(settings config.Settings, log *logrus.Logger) string {
	var uploader backup.Uploader
	if settings.Backup.S3Enable {
		client, err := s3storage.NewClient(settings.Backup, log)
		if err != nil {
			log.Errorf("s3 offload unavailable, continuing with local backup only: %v", err)
		} else {
			uploader = client
		}
	}

	sources := make([]string, 0, len(settings.Folders.Clean)+len(settings.Folders.CopySources))
	sources = append(sources, settings.Folders.Clean...)
	sources = append(sources, settings.Folders.CopySources...)

	return backup.NewManager(settings.Backup, uploader, log).Run(sources)
}

func logSummary(log *logrus.Logger, settings config.Settings) {
	log.Info("=== loaded settings ===")
	log.Infof("database: %s", settings.Database.Database)
	log.Infof("database mode: %s", settings.Database.Mode)
	if len(settings.Database.Tables) > 0 {
		log.Infof("tables to process: %s", strings.Join(settings.Database.Tables, ", "))
	}

	log.Infof("folders to clean: %s", strings.Join(settings.Folders.Clean, ", "))
	if len(settings.Folders.CopySources) > 0 {
		log.Infof("copy sources: %s", strings.Join(settings.Folders.CopySources, ", "))
		log.Infof("copy destinations: %s", strings.Join(settings.Folders.CopyDestinations, ", "))
		if settings.Folders.CopyUser != "" {
			log.Infof("copy user: %s", settings.Folders.CopyUser)
		}
	}

	log.Infof("backup enabled: %v", settings.Backup.Enable)
	if settings.Backup.Enable && settings.Backup.BackupDir != "" {
		log.Infof("backup directory: %s", settings.Backup.BackupDir)
	}
	if settings.Backup.S3Enable {
		log.Infof("backup offload: s3://%s", settings.Backup.S3Bucket)
	}

	log.Infof("destructive operation confirmation: %v", settings.Security.ConfirmDestructiveOperations)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Get().String())
		},
	}
}
