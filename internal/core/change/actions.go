package change

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/example/bulkedit/internal/core/errs"
	"github.com/example/bulkedit/internal/core/record"
)

// input is what an action sees when it is applied to one record.
type input struct {
	current  *string
	original *string
	props    record.Properties
	payload  Payload
}

type handler struct {
	validate func(Change) error
	apply    func(input) *string
}

var registry = map[Action]handler{}

func register(a Action, h handler) {
	if _, dup := registry[a]; dup {
		panic(fmt.Sprintf("change: action %s registered twice", a))
	}
	registry[a] = h
}

func lookup(a Action) (handler, bool) {
	h, ok := registry[a]
	return h, ok
}

// ValidateRegistry reports every action without a handler. It runs at
// startup so a missing handler is a wiring error, not a commit-time one.
func ValidateRegistry() error {
	var missing []string
	for _, a := range Actions() {
		if h, ok := registry[a]; !ok || h.apply == nil {
			missing = append(missing, string(a))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("change: no handler registered for %s", strings.Join(missing, ", "))
	}
	return nil
}

// mapString applies fn to non-null values; nulls stay null.
func mapString(fn func(string) string) func(input) *string {
	return func(in input) *string {
		if in.current == nil {
			return nil
		}
		return record.String(fn(*in.current))
	}
}

// caser builds a fresh Caser per call; Casers are stateful and replays run
// concurrently.
func caser(newCaser func() cases.Caser) func(string) string {
	return func(s string) string {
		return newCaser().String(s)
	}
}

func init() {
	register(ActionSet, handler{
		apply: func(in input) *string { return record.String(in.payload.Value) },
	})
	register(ActionClear, handler{
		apply: func(input) *string { return record.String("") },
	})
	register(ActionMakeNull, handler{
		apply: func(input) *string { return nil },
	})
	register(ActionFindReplace, handler{
		validate: validateFindReplace,
		apply:    applyFindReplace,
	})
	register(ActionCopyFromColumn, handler{
		validate: func(c Change) error {
			if c.Payload.SourceField == "" {
				return errs.Invalid("source_field", "is required for %s", ActionCopyFromColumn)
			}
			if c.Payload.SourceField == c.TargetField {
				return errs.Invalid("source_field", "must differ from the target field")
			}
			return nil
		},
		apply: func(in input) *string {
			v, ok := in.props[in.payload.SourceField]
			if !ok {
				return nil
			}
			return v
		},
	})
	register(ActionStrip, handler{apply: mapString(strings.TrimSpace)})
	register(ActionTitleCase, handler{apply: mapString(caser(func() cases.Caser { return cases.Title(language.Und) }))})
	register(ActionUpperCase, handler{apply: mapString(caser(func() cases.Caser { return cases.Upper(language.Und) }))})
	register(ActionLowerCase, handler{apply: mapString(caser(func() cases.Caser { return cases.Lower(language.Und) }))})
	register(ActionReset, handler{
		apply: func(in input) *string { return in.original },
	})
}

func validateFindReplace(c Change) error {
	if c.Payload.Find == "" {
		return errs.Invalid("find", "is required for %s", ActionFindReplace)
	}
	if c.Payload.UseRegex {
		if _, err := compilePattern(c.Payload.Find); err != nil {
			return errs.Invalid("find", "invalid regular expression: %v", err)
		}
	}
	return nil
}

func applyFindReplace(in input) *string {
	if in.current == nil {
		return nil
	}
	if in.payload.UseRegex {
		re, err := compilePattern(in.payload.Find)
		if err != nil {
			return in.current
		}
		return record.String(re.ReplaceAllString(*in.current, in.payload.Replace))
	}
	return record.String(strings.ReplaceAll(*in.current, in.payload.Find, in.payload.Replace))
}

const maxCachedPatterns = 256

// patterns holds compiled find expressions by source so a commit run
// compiles each one once rather than once per record.
var patterns = struct {
	sync.Mutex
	byExpr map[string]*regexp.Regexp
}{byExpr: map[string]*regexp.Regexp{}}

func compilePattern(expr string) (*regexp.Regexp, error) {
	patterns.Lock()
	defer patterns.Unlock()
	if re, ok := patterns.byExpr[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	if len(patterns.byExpr) >= maxCachedPatterns {
		clear(patterns.byExpr)
	}
	patterns.byExpr[expr] = re
	return re, nil
}
