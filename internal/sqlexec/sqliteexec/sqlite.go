// Package sqliteexec provisions scratch SQLite databases as files in a work
// directory.
package sqliteexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type Provisioner struct {
	dir string
}

func New(dir string) (*Provisioner, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("invalid sqlite work directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite work directory: %w", err)
	}
	return &Provisioner{dir: dir}, nil
}

func (p *Provisioner) path(name string) string {
	return filepath.Join(p.dir, filepath.Base(name)+".db")
}

func (p *Provisioner) OpenScratch(ctx context.Context, name string) (*sql.DB, error) {
	path := p.path(name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("database %s already exists", name)
	}

	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "trusted_schema(0)")
	q.Add("_pragma", "busy_timeout(5000)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return db, nil
}

func (p *Provisioner) DropScratch(_ context.Context, name string) error {
	base := p.path(name)
	for _, path := range []string{base, base + "-wal", base + "-shm", base + "-journal"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (p *Provisioner) FixCommandText(text string) string {
	return text
}

func (p *Provisioner) FormatField(_ *sql.ColumnType, _ any) (string, bool) {
	return "", false
}
