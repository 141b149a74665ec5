package mysqlexec

import (
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	legacyUserIDRe   = regexp.MustCompile(`(?i)(UID|User ?Id|User)=.*?(;|$)`)
	legacyPasswordRe = regexp.MustCompile(`(?i)(Password|Pwd)=.*?(;|$)`)
	legacyServerRe   = regexp.MustCompile(`(?i)(Server|Host|Data Source)=(.*?)(;|$)`)
	legacyPortRe     = regexp.MustCompile(`(?i)Port=(\d+)`)
	legacyDatabaseRe = regexp.MustCompile(`(?i)Database=(.*?)(;|$)`)
)

// ParseConnectionString accepts either a driver DSN
// ("user:pass@tcp(host:3306)/") or a legacy key-value connection string
// ("Server=host;Port=3306;UID=user;Password=pass;").
func ParseConnectionString(s string) (*mysql.Config, error) {
	if !isLegacy(s) {
		return mysql.ParseDSN(s)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"

	host := "localhost"
	if m := legacyServerRe.FindStringSubmatch(s); m != nil {
		host = strings.TrimSpace(m[2])
	}
	port := "3306"
	if m := legacyPortRe.FindStringSubmatch(s); m != nil {
		port = m[1]
	}
	cfg.Addr = host + ":" + port

	if m := legacyUserIDRe.FindString(s); m != "" {
		cfg.User = valueOf(m)
	}
	if m := legacyPasswordRe.FindString(s); m != "" {
		cfg.Passwd = valueOf(m)
	}
	if m := legacyDatabaseRe.FindStringSubmatch(s); m != nil {
		cfg.DBName = strings.TrimSpace(m[1])
	}
	return cfg, nil
}

func isLegacy(s string) bool {
	return strings.Contains(s, "=") && strings.Contains(s, ";") && !strings.Contains(s, "@")
}

func valueOf(kv string) string {
	_, v, _ := strings.Cut(kv, "=")
	return strings.TrimSuffix(v, ";")
}
