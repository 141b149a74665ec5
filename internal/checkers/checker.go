package checkers

import (
	"fmt"
	"strings"

	"github.com/programme-lv/executor/internal"
)

const (
	MaxFragmentLength      = 256
	MaxTrialFragmentLength = 4096
)

type ResultType int

const (
	Ok ResultType = iota
	WrongAnswer
	InvalidNumberOfLines
	InvalidOutputFormat
)

func (t ResultType) String() string {
	switch t {
	case Ok:
		return "Ok"
	case WrongAnswer:
		return "WrongAnswer"
	case InvalidNumberOfLines:
		return "InvalidNumberOfLines"
	case InvalidOutputFormat:
		return "InvalidOutputFormat"
	}
	return fmt.Sprintf("ResultType(%d)", int(t))
}

type Result struct {
	IsCorrect  bool
	ResultType ResultType
	Details    internal.CheckerDetails
}

// Checker judges a user's output against the expected output of one test.
type Checker interface {
	Check(input, userOutput, expectedOutput string, isTrialTest bool) Result
}

// lineChecker compares outputs line by line after an optional whole-text
// transform. Lines are read the way a line reader would: a single trailing
// newline does not produce an extra empty line.
type lineChecker struct {
	prepare func(lines []string) []string
	equal   func(user, expected string) (bool, ResultType)
}

func (c lineChecker) Check(_ string, userOutput, expectedOutput string, isTrialTest bool) Result {
	userOutput = normalizeNewlines(userOutput)
	expectedOutput = normalizeNewlines(expectedOutput)

	userLines := readLines(userOutput)
	expectedLines := readLines(expectedOutput)
	if c.prepare != nil {
		userLines = c.prepare(userLines)
		expectedLines = c.prepare(expectedLines)
	}

	n := min(len(userLines), len(expectedLines))
	for i := 0; i < n; i++ {
		ok, rt := c.equal(userLines[i], expectedLines[i])
		if !ok {
			return failed(rt, fmt.Sprintf("Wrong answer on line %d", i+1),
				strings.Join(userLines, "\n"), strings.Join(expectedLines, "\n"), isTrialTest)
		}
	}

	if len(userLines) != len(expectedLines) {
		return failed(InvalidNumberOfLines,
			fmt.Sprintf("Invalid number of lines: expected %d, got %d", len(expectedLines), len(userLines)),
			strings.Join(userLines, "\n"), strings.Join(expectedLines, "\n"), isTrialTest)
	}

	return Result{IsCorrect: true, ResultType: Ok}
}

func failed(rt ResultType, comment, user, expected string, isTrialTest bool) Result {
	limit := MaxFragmentLength
	if isTrialTest {
		limit = MaxTrialFragmentLength
	}
	userFrag, expectedFrag := Fragments(user, expected, limit)
	return Result{
		IsCorrect:  false,
		ResultType: rt,
		Details: internal.CheckerDetails{
			Comment:                comment,
			UserOutputFragment:     userFrag,
			ExpectedOutputFragment: expectedFrag,
		},
	}
}

// Fragments cuts both texts to a window of at most limit bytes centred on the
// first byte where they differ. Cut ends are marked with "...".
func Fragments(user, expected string, limit int) (string, string) {
	diff := 0
	for diff < len(user) && diff < len(expected) && user[diff] == expected[diff] {
		diff++
	}
	start := max(0, diff-limit/2)
	return window(user, start, limit), window(expected, start, limit)
}

func window(s string, start, limit int) string {
	if start >= len(s) {
		start = max(0, len(s)-limit)
	}
	end := min(len(s), start+limit)
	frag := s[start:end]
	if start > 0 {
		frag = "..." + frag
	}
	if end < len(s) {
		frag += "..."
	}
	return frag
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func readLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
