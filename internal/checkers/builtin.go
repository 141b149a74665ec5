package checkers

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const DefaultPrecision = 14

// MaxPrecision caps the precision parameter; float64 carries no more
// significant decimal digits.
const MaxPrecision = 15

func NewExactChecker() Checker {
	return lineChecker{
		equal: func(u, e string) (bool, ResultType) { return u == e, WrongAnswer },
	}
}

// NewTrimChecker ignores leading and trailing whitespace of the whole output
// and of every line.
func NewTrimChecker() Checker {
	return lineChecker{
		prepare: trimLines,
		equal: func(u, e string) (bool, ResultType) {
			return u == e, WrongAnswer
		},
	}
}

// NewSortChecker accepts the expected lines in any order.
func NewSortChecker() Checker {
	return lineChecker{
		prepare: func(lines []string) []string {
			lines = trimLines(lines)
			slices.Sort(lines)
			return lines
		},
		equal: func(u, e string) (bool, ResultType) { return u == e, WrongAnswer },
	}
}

func NewCaseInsensitiveChecker() Checker {
	return lineChecker{
		prepare: trimLines,
		equal: func(u, e string) (bool, ResultType) {
			return strings.EqualFold(u, e), WrongAnswer
		},
	}
}

// NewPrecisionChecker compares numeric tokens with a tolerance of 10^-digits
// and every other token exactly. Digits above MaxPrecision are clamped.
// NaN and infinite expected values must match token for token.
func NewPrecisionChecker(parameter string) (Checker, error) {
	digits := DefaultPrecision
	if p := strings.TrimSpace(parameter); p != "" {
		var err error
		digits, err = strconv.Atoi(p)
		if err != nil || digits < 0 {
			return nil, fmt.Errorf("invalid precision %q", parameter)
		}
	}
	eps := math.Pow10(-min(digits, MaxPrecision))

	return lineChecker{
		prepare: trimLines,
		equal: func(u, e string) (bool, ResultType) {
			userTokens := strings.Fields(u)
			expectedTokens := strings.Fields(e)
			if len(userTokens) != len(expectedTokens) {
				return false, WrongAnswer
			}
			for i := range expectedTokens {
				ev, eErr := strconv.ParseFloat(expectedTokens[i], 64)
				if eErr != nil || math.IsNaN(ev) || math.IsInf(ev, 0) {
					if userTokens[i] != expectedTokens[i] {
						return false, WrongAnswer
					}
					continue
				}
				uv, uErr := strconv.ParseFloat(userTokens[i], 64)
				if uErr != nil {
					return false, InvalidOutputFormat
				}
				if !(math.Abs(uv-ev) < eps) {
					return false, WrongAnswer
				}
			}
			return true, Ok
		},
	}, nil
}

func trimLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.TrimSpace(l))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	return out
}
