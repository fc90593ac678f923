package lang

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMalformedPattern is reported for a search pattern that does not compile.
var ErrMalformedPattern = errors.New("malformed pattern")

var (
	jsFunctions     = regexp.MustCompile(`(?m)^\s*(?:function|const|let|var)\s+(\w+)\s*[=\(]`)
	pythonFunctions = regexp.MustCompile(`(?m)^\s*def\s+(\w+)\s*\(`)
	rustFunctions   = regexp.MustCompile(`(?m)^\s*(?:pub\s+)?fn\s+(\w+)\s*[<\(]`)
	goFunctions     = regexp.MustCompile(`(?m)^\s*func\s+(?:\([^)]*\)\s+)?(\w+)\s*\(`)
)

// functionPattern returns the declaration pattern for l, or nil when
// function extraction is not supported for it.
func functionPattern(l Language) *regexp.Regexp {
	switch l {
	case JavaScript, TypeScript:
		return jsFunctions
	case Python:
		return pythonFunctions
	case Rust:
		return rustFunctions
	case Go:
		return goFunctions
	case Java, Cpp, C, Unknown:
		return nil
	default:
		return nil
	}
}

// SupportsFunctions reports whether ExtractFunctions knows l.
func SupportsFunctions(l Language) bool {
	return functionPattern(l) != nil
}

// ExtractFunctions returns declared function names in source order.
// Unsupported languages yield an empty slice.
func ExtractFunctions(content string, l Language) []string {
	re := functionPattern(l)
	if re == nil {
		return []string{}
	}

	matches := re.FindAllStringSubmatch(content, -1)
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		names = append(names, m[1])
	}

	return names
}

// SearchPatterns counts non-overlapping matches of each pattern in content.
// A pattern that fails to compile is left out of the counts and reported
// in errs; the others are still counted.
func SearchPatterns(content string, patterns []string) (counts map[string]int, errs []error) {
	counts = make(map[string]int, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %w", ErrMalformedPattern, p, err))

			continue
		}

		counts[p] = len(re.FindAllStringIndex(content, -1))
	}

	return counts, errs
}
