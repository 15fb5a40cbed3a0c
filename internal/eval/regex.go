package eval

import (
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// MatchTimeout bounds a single pattern match. Like patterns are anchored
// literals, but interpreters also accept arbitrary regex operands.
const MatchTimeout = time.Second

var patterns sync.Map // pattern -> *regexp2.Regexp

// MatchRegex reports whether s matches pattern, case-insensitively.
//
// Patterns use .NET/Perl syntax so the negative lookaheads produced for
// negated like operands ("^(?!abc).+") compile. Compiled patterns are
// cached for the life of the process.
func MatchRegex(pattern, s string) (bool, error) {
	re, err := compile(pattern)
	if err != nil {
		return false, err
	}
	ok, err := re.MatchString(s)
	if err != nil {
		return false, fmt.Errorf("match %q: %w", pattern, err)
	}
	return ok, nil
}

func compile(pattern string) (*regexp2.Regexp, error) {
	if cached, ok := patterns.Load(pattern); ok {
		return cached.(*regexp2.Regexp), nil
	}

	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = MatchTimeout

	actual, _ := patterns.LoadOrStore(pattern, re)
	return actual.(*regexp2.Regexp), nil
}
