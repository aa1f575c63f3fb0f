// Package database implements the MySQL cleanup phase of a reset.
package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/supporttools/EnvReset/pkg/config"
	"github.com/supporttools/EnvReset/pkg/prompt"
)

// Cleaner applies the configured cleanup mode to the target database.
// Every logical phase (state report before, cleanup, state report after)
// opens its own connection and closes it when done.
type Cleaner struct {
	cfg     config.DatabaseSettings
	confirm *prompt.Confirmer
	log     *logrus.Logger
}

// NewCleaner returns a Cleaner bound to the given settings snapshot.
func NewCleaner(cfg config.DatabaseSettings, confirm *prompt.Confirmer, log *logrus.Logger) *Cleaner {
	return &Cleaner{
		cfg:     cfg,
		confirm: confirm,
		log:     log,
	}
}

// open establishes a fresh connection for one logical phase. The pool is
// pinned to a single connection because FOREIGN_KEY_CHECKS is session
// scoped and must apply to every statement of the phase.
func (c *Cleaner) open() (*sql.DB, error) {
	db, err := sql.Open("mysql", c.dsn())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mysql connection")
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping mysql server")
	}

	return db, nil
}

func (c *Cleaner) dsn() string {
	params := "charset=utf8mb4"
	switch c.cfg.AuthPlugin {
	case "mysql_clear_password":
		params += "&allowCleartextPasswords=true"
	case "mysql_old_password":
		params += "&allowOldPasswords=true"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.cfg.User, c.cfg.Password, c.cfg.Host, c.cfg.Port, c.cfg.Database, params)
}

// ReportState logs the current table count and names. Failures are logged
// and never abort the run.
func (c *Cleaner) ReportState() {
	if c.cfg.Database == "" {
		c.log.Info("database name not set, nothing to report")
		return
	}

	db, err := c.open()
	if err != nil {
		c.log.Warnf("could not fetch database state: %v", err)
		return
	}
	defer db.Close()

	tables, err := listTables(db)
	if err != nil {
		c.log.Warnf("could not fetch database state: %v", err)
		return
	}

	c.log.Infof("database %q currently has %d tables", c.cfg.Database, len(tables))
	if len(tables) > 0 {
		c.log.Infof("tables: %s", strings.Join(tables, ", "))
	}
}

// Clean opens a connection and applies the configured mode. Connection
// problems and per-statement failures are logged and leave the rest of the
// run untouched.
func (c *Cleaner) Clean() {
	if c.cfg.Database == "" {
		c.log.Info("database name not set, skipping database cleanup")
		return
	}

	db, err := c.open()
	if err != nil {
		c.logConnectError(err)
		return
	}
	defer db.Close()

	c.clean(db)
}

func (c *Cleaner) clean(db *sql.DB) {
	switch c.cfg.Mode {
	case config.ModeDropAll:
		if !c.confirm.Confirm(fmt.Sprintf("ALL tables in database %q will be dropped", c.cfg.Database)) {
			c.log.Info("operation cancelled by user")
			return
		}
		c.log.Info("mode: drop all tables")
		c.dropAll(db)

	case config.ModeDropList:
		if len(c.cfg.Tables) > 0 {
			if !c.confirm.Confirm(fmt.Sprintf("these tables will be dropped: %s", strings.Join(c.cfg.Tables, ", "))) {
				c.log.Info("operation cancelled by user")
				return
			}
		}
		c.log.Info("mode: drop listed tables")
		c.dropList(db)

	case config.ModeTruncate:
		c.log.Info("mode: truncate listed tables")
		c.truncate(db)

	default:
		c.log.Warnf("unrecognized database cleanup mode %q, nothing to do", c.cfg.Mode)
	}
}

// dropAll drops every table currently present in one statement. With zero
// tables it logs and returns without touching anything.
func (c *Cleaner) dropAll(db *sql.DB) {
	err := withForeignKeyChecksDisabled(db, c.log, func() error {
		tables, err := listTables(db)
		if err != nil {
			return err
		}

		if len(tables) == 0 {
			c.log.Info("no tables in the database, nothing to drop")
			return nil
		}

		c.log.Infof("found %d tables to drop", len(tables))

		if _, err := db.Exec("DROP TABLE " + strings.Join(tables, ", ")); err != nil {
			return errors.Wrap(err, "failed to drop tables")
		}

		c.log.Infof("dropped all %d tables", len(tables))
		return nil
	})
	if err != nil {
		c.log.Errorf("database cleanup failed: %v", err)
	}
}

// dropList drops each configured table individually. Missing tables are
// skipped by the IF EXISTS guard.
func (c *Cleaner) dropList(db *sql.DB) {
	err := withForeignKeyChecksDisabled(db, c.log, func() error {
		for _, table := range c.cfg.Tables {
			if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
				return errors.Wrapf(err, "failed to drop table %s", table)
			}
			c.log.Infof("dropped table %s", table)
		}
		c.log.Infof("dropped %d listed tables", len(c.cfg.Tables))
		return nil
	})
	if err != nil {
		c.log.Errorf("database cleanup failed: %v", err)
	}
}

// truncate empties each configured table, committing once after the loop.
func (c *Cleaner) truncate(db *sql.DB) {
	tx, err := db.Begin()
	if err != nil {
		c.log.Errorf("failed to start truncate batch: %v", err)
		return
	}

	for _, table := range c.cfg.Tables {
		if _, err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
			c.log.Errorf("failed to truncate table %s: %v", table, err)
			tx.Rollback()
			return
		}
		c.log.Infof("truncated table %s", table)
	}

	if err := tx.Commit(); err != nil {
		c.log.Errorf("failed to commit truncate batch: %v", err)
		return
	}

	c.log.Info("listed tables truncated")
}

// withForeignKeyChecksDisabled runs fn with FOREIGN_KEY_CHECKS off and turns
// them back on on every exit path. A failed re-enable is not escalated: the
// setting is session scoped and the connection closes right after the phase.
func withForeignKeyChecksDisabled(db *sql.DB, log *logrus.Logger, fn func() error) error {
	if _, err := db.Exec("SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return errors.Wrap(err, "failed to disable foreign key checks")
	}

	defer func() {
		if _, err := db.Exec("SET FOREIGN_KEY_CHECKS = 1"); err != nil {
			log.Debugf("could not re-enable foreign key checks: %v", err)
		}
	}()

	return fn()
}

// listTables returns every table in the connected database.
func listTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SHOW TABLES")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan table name")
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating table rows")
	}

	return tables, nil
}

func (c *Cleaner) logConnectError(err error) {
	c.log.Errorf("could not connect to database: %v", err)
	if strings.Contains(err.Error(), "authentication plugin") {
		c.log.Error("the server requested an authentication plugin the driver could not negotiate; " +
			"set database.auth_plugin in the settings file or switch the account to mysql_native_password")
	}
}
