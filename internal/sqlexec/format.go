package sqlexec

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateTimeFormat = "2006-01-02 15:04:05"
	TimeFormat     = "15:04:05"
)

var binaryTypes = map[string]bool{
	"BLOB":       true,
	"TINYBLOB":   true,
	"MEDIUMBLOB": true,
	"LONGBLOB":   true,
	"BINARY":     true,
	"VARBINARY":  true,
	"BIT":        true,
}

// FormatValue renders a scanned field independently of the current locale.
// Byte slices are text unless the column is declared binary, in which case
// they are rendered with ToHexString.
func FormatValue(col *sql.ColumnType, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		if col != nil && binaryTypes[strings.ToUpper(col.DatabaseTypeName())] {
			return ToHexString(x)
		}
		return string(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return x.Format(DateTimeFormat)
	default:
		return fmt.Sprint(x)
	}
}

const hexChars = "0123456789ABCDEF"

// ToHexString renders bytes as 0x followed by upper-case hex digits.
func ToHexString(b []byte) string {
	out := make([]byte, 2+2*len(b))
	out[0], out[1] = '0', 'x'
	for i, c := range b {
		out[2+2*i] = hexChars[c>>4]
		out[3+2*i] = hexChars[c&0x0f]
	}
	return string(out)
}
