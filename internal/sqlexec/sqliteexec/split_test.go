package sqliteexec_test

import (
	"testing"

	"github.com/programme-lv/executor/internal/sqlexec/sqliteexec"
	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single without semicolon", "SELECT 1", []string{"SELECT 1"}},
		{"two selects", "SELECT 1; SELECT 2;", []string{"SELECT 1;", "SELECT 2;"}},
		{"semicolon in string", "SELECT 'a;b'; SELECT 'it''s';", []string{"SELECT 'a;b';", "SELECT 'it''s';"}},
		{"quoted identifiers", `SELECT "x;y", [a;b], ` + "`c;d`" + ` FROM t;`, []string{`SELECT "x;y", [a;b], ` + "`c;d`" + ` FROM t;`}},
		{"comments", "-- first; still comment\nSELECT 1; /* ; */ SELECT 2", []string{"-- first; still comment\nSELECT 1;", "/* ; */ SELECT 2"}},
		{"empty pieces dropped", " ;; -- only a comment\n ;", nil},
		{
			"trigger body",
			"CREATE TRIGGER tr AFTER INSERT ON t BEGIN UPDATE c SET n = n + 1; INSERT INTO log VALUES (1); END; SELECT 1;",
			[]string{"CREATE TRIGGER tr AFTER INSERT ON t BEGIN UPDATE c SET n = n + 1; INSERT INTO log VALUES (1); END;", "SELECT 1;"},
		},
		{
			"temp trigger",
			"create temp trigger tr after delete on t begin delete from u; end;",
			[]string{"create temp trigger tr after delete on t begin delete from u; end;"},
		},
		{"column named end", "SELECT end FROM t; SELECT 2;", []string{"SELECT end FROM t;", "SELECT 2;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteexec.SplitStatements(tt.text))
		})
	}
}
