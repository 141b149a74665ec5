package sqliteexec

import "strings"

// SplitStatements cuts SQL text into statements at top-level semicolons.
// Quoted strings and identifiers, comments, and the BEGIN ... END body of
// CREATE TRIGGER are kept whole. Pieces without any token are dropped.
func SplitStatements(text string) []string {
	var (
		out     []string
		start   int
		words   []string // leading words, up to three
		last    string   // last word token, "" after any other token
		hasCode bool
	)

	emit := func(end int) {
		if hasCode {
			out = append(out, strings.TrimSpace(text[start:end]))
		}
		start, words, last, hasCode = end, nil, "", false
	}

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '-' && i+1 < len(text) && text[i+1] == '-':
			if j := strings.IndexByte(text[i:], '\n'); j >= 0 {
				i += j + 1
			} else {
				i = len(text)
			}
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			if j := strings.Index(text[i+2:], "*/"); j >= 0 {
				i += j + 4
			} else {
				i = len(text)
			}
		case c == '\'' || c == '"' || c == '`' || c == '[':
			closer := c
			if c == '[' {
				closer = ']'
			}
			// doubled quotes re-enter the loop as a new quoted token
			if j := strings.IndexByte(text[i+1:], closer); j >= 0 {
				i += j + 2
			} else {
				i = len(text)
			}
			hasCode, last = true, ""
		case c == ';':
			i++
			if !isTrigger(words) || last == "END" {
				emit(i)
			} else {
				last = ""
			}
		case isWordByte(c):
			j := i
			for j < len(text) && isWordByte(text[j]) {
				j++
			}
			w := strings.ToUpper(text[i:j])
			if len(words) < 3 {
				words = append(words, w)
			}
			hasCode, last = true, w
			i = j
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		default:
			hasCode, last = true, ""
			i++
		}
	}
	emit(len(text))
	return out
}

func isTrigger(words []string) bool {
	if len(words) < 2 || words[0] != "CREATE" {
		return false
	}
	if words[1] == "TRIGGER" {
		return true
	}
	return len(words) > 2 && (words[1] == "TEMP" || words[1] == "TEMPORARY") && words[2] == "TRIGGER"
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func (p *Provisioner) SplitStatements(text string) []string {
	return SplitStatements(text)
}
