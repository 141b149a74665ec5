package checkers

import (
	"fmt"
	"slices"

	"github.com/programme-lv/executor/api"
	"github.com/puzpuzpuz/xsync/v3"
)

// Factory builds a checker from its parameter string.
type Factory func(parameter string) (Checker, error)

var registry = xsync.NewMapOf[string, Factory]()

func init() {
	Register("exact", func(string) (Checker, error) { return NewExactChecker(), nil })
	Register("trim", func(string) (Checker, error) { return NewTrimChecker(), nil })
	Register("sort", func(string) (Checker, error) { return NewSortChecker(), nil })
	Register("case-insensitive", func(string) (Checker, error) { return NewCaseInsensitiveChecker(), nil })
	Register("precision", NewPrecisionChecker)
}

// Register adds or replaces a checker type. Names are normalised with
// api.FormatCheckerType.
func Register(name string, f Factory) {
	registry.Store(api.FormatCheckerType(name), f)
}

// New resolves a checker by type name. An empty name selects "trim".
func New(name, parameter string) (Checker, error) {
	key := api.FormatCheckerType(name)
	if key == "" {
		key = "trim"
	}
	f, ok := registry.Load(key)
	if !ok {
		return nil, fmt.Errorf("unknown checker type %q", name)
	}
	return f(parameter)
}

// Names returns the registered checker types in sorted order.
func Names() []string {
	var names []string
	registry.Range(func(name string, _ Factory) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}
