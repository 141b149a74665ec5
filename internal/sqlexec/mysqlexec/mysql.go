// Package mysqlexec provisions scratch MySQL databases owned by a restricted
// worker user.
package mysqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/programme-lv/executor/internal/sqlexec"
)

const adminTimeLimit = 100 * time.Second

// errUnknownThread is returned by KILL when the connection already ended.
const errUnknownThread = 1094

type Provisioner struct {
	sysConfig *mysql.Config

	restrictedUserID       string
	restrictedUserPassword string

	adminTimeLimit time.Duration
	openSys        func(ctx context.Context) (*sql.DB, error)

	logger *slog.Logger
}

func New(sysDSN, restrictedUserID, restrictedUserPassword string, logger *slog.Logger) (*Provisioner, error) {
	if strings.TrimSpace(sysDSN) == "" {
		return nil, errors.New("invalid sys DB connection string")
	}
	if strings.TrimSpace(restrictedUserID) == "" {
		return nil, errors.New("invalid restricted user ID")
	}
	if strings.TrimSpace(restrictedUserPassword) == "" {
		return nil, errors.New("invalid restricted user password")
	}

	cfg, err := ParseConnectionString(sysDSN)
	if err != nil {
		return nil, fmt.Errorf("invalid sys DB connection string: %w", err)
	}
	cfg.MultiStatements = true

	if logger == nil {
		logger = slog.Default()
	}
	p := &Provisioner{
		sysConfig:              cfg,
		restrictedUserID:       restrictedUserID,
		restrictedUserPassword: restrictedUserPassword,
		adminTimeLimit:         adminTimeLimit,
		logger:                 logger.With("component", "mysql-provisioner"),
	}
	p.openSys = p.connectSys
	return p, nil
}

func (p *Provisioner) connectSys(ctx context.Context) (*sql.DB, error) {
	connector, err := mysql.NewConnector(p.sysConfig)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to sys database: %w", err)
	}
	return db, nil
}

func (p *Provisioner) OpenScratch(ctx context.Context, name string) (*sql.DB, error) {
	sys, err := p.openSys(ctx)
	if err != nil {
		return nil, err
	}
	defer sys.Close()

	user := quoteString(p.restrictedUserID)
	statements := []string{
		fmt.Sprintf("CREATE DATABASE %s;", quoteIdent(name)),
		fmt.Sprintf("CREATE USER IF NOT EXISTS %s@'%%';\nALTER USER %s@'%%' IDENTIFIED BY %s;",
			user, user, quoteString(p.restrictedUserPassword)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO %s@'%%';\nFLUSH PRIVILEGES;", quoteIdent(name), user),
		"SET GLOBAL log_bin_trust_function_creators = 1;",
	}
	for _, stmt := range statements {
		completed, err := sqlexec.ExecuteNonQuery(ctx, p, sys, stmt, p.adminTimeLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to provision database %s: %w", name, err)
		}
		if !completed {
			return nil, fmt.Errorf("provisioning database %s timed out", name)
		}
	}

	connector, err := mysql.NewConnector(p.WorkerConfig(name))
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", name, err)
	}
	p.logger.Debug("provisioned scratch database", "database", name)
	return db, nil
}

// DropScratch kills whatever still runs against the database, then drops it.
// A query cancelled on the client side keeps running on the server and would
// block the drop on its metadata lock.
func (p *Provisioner) DropScratch(ctx context.Context, name string) error {
	sys, err := p.openSys(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()

	if err := p.killConnections(ctx, sys, name); err != nil {
		p.logger.Warn("failed to kill scratch connections", "database", name, "error", err)
	}

	completed, err := sqlexec.ExecuteNonQuery(ctx, p, sys, fmt.Sprintf("DROP DATABASE IF EXISTS %s;", quoteIdent(name)), p.adminTimeLimit)
	if err != nil {
		return err
	}
	if !completed {
		return fmt.Errorf("dropping database %s did not finish in %s", name, p.adminTimeLimit)
	}
	return nil
}

func (p *Provisioner) killConnections(ctx context.Context, sys *sql.DB, name string) error {
	rows, err := sys.QueryContext(ctx,
		"SELECT ID FROM information_schema.PROCESSLIST WHERE DB = ? AND ID <> CONNECTION_ID()", name)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		_, err := sys.ExecContext(ctx, fmt.Sprintf("KILL %d", id))
		var myErr *mysql.MySQLError
		if err != nil && !(errors.As(err, &myErr) && myErr.Number == errUnknownThread) {
			return fmt.Errorf("failed to kill connection %d: %w", id, err)
		}
		p.logger.Debug("killed scratch connection", "database", name, "connection", id)
	}
	return nil
}

// WorkerConfig is the sys configuration with the restricted user swapped in
// and the scratch database selected.
func (p *Provisioner) WorkerConfig(name string) *mysql.Config {
	cfg := p.sysConfig.Clone()
	cfg.User = p.restrictedUserID
	cfg.Passwd = p.restrictedUserPassword
	cfg.DBName = name
	cfg.MultiStatements = true
	return cfg
}

func (p *Provisioner) FixCommandText(text string) string {
	return text
}

// FormatField trims fractional seconds from TIME, DATETIME and TIMESTAMP
// columns read over the text protocol. time.Time values are handled by the
// generic formatting.
func (p *Provisioner) FormatField(col *sql.ColumnType, v any) (string, bool) {
	if col == nil {
		return "", false
	}
	return formatTemporal(col.DatabaseTypeName(), v)
}

var temporalTypes = map[string]bool{
	"TIME":      true,
	"DATETIME":  true,
	"TIMESTAMP": true,
}

func formatTemporal(typeName string, v any) (string, bool) {
	if !temporalTypes[strings.ToUpper(typeName)] {
		return "", false
	}
	b, ok := v.([]byte)
	if !ok {
		return "", false
	}
	s := string(b)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s, true
}

func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func quoteString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
