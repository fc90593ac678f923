// Package lang detects the language of a source file and extracts function
// names and pattern counts from its content.
package lang

import (
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// Language is a closed set of language tags.
type Language string

// Supported languages. Unknown is the tag for everything else.
const (
	Rust       Language = "rust"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Python     Language = "python"
	Go         Language = "go"
	Java       Language = "java"
	Cpp        Language = "cpp"
	C          Language = "c"
	Unknown    Language = "unknown"
)

// All lists the known languages, Unknown excluded.
var All = []Language{Rust, JavaScript, TypeScript, Python, Go, Java, Cpp, C}

var extensions = map[string]Language{
	".rs":   Rust,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".ts":   TypeScript,
	".tsx":  TypeScript,
	".py":   Python,
	".go":   Go,
	".java": Java,
	".cpp":  Cpp,
	".cc":   Cpp,
	".cxx":  Cpp,
	".c":    C,
	".h":    C,
}

// enryNames maps linguist language names onto the closed set.
var enryNames = map[string]Language{
	"Rust":       Rust,
	"JavaScript": JavaScript,
	"JSX":        JavaScript,
	"TypeScript": TypeScript,
	"TSX":        TypeScript,
	"Python":     Python,
	"Go":         Go,
	"Java":       Java,
	"C++":        Cpp,
	"C":          C,
}

// Parse maps a tag to its Language. Unrecognised tags are Unknown.
func Parse(tag string) Language {
	l := Language(strings.ToLower(strings.TrimSpace(tag)))

	for _, known := range All {
		if l == known {
			return l
		}
	}

	return Unknown
}

// String returns the tag.
func (l Language) String() string { return string(l) }

// Detect names the language of content. The file extension wins when it is
// known. Otherwise the content is matched against a few marker substrings.
func Detect(content, filename string) Language {
	if filename != "" {
		if l, ok := byExtension(filename); ok {
			return l
		}
	}

	return byContent(content)
}

// byExtension matches extensions case-sensitively. enry folds case, so it
// is only asked about lower-case extensions.
func byExtension(filename string) (Language, bool) {
	ext := filepath.Ext(filename)
	if l, ok := extensions[ext]; ok {
		return l, true
	}

	if ext != strings.ToLower(ext) {
		return Unknown, false
	}

	name, _ := enry.GetLanguageByExtension(filename)
	if l, ok := enryNames[name]; ok {
		return l, true
	}

	return Unknown, false
}

func byContent(content string) Language {
	switch {
	case strings.Contains(content, "fn main()") || strings.Contains(content, "impl "):
		return Rust
	case strings.Contains(content, "def ") && strings.Contains(content, "import "):
		return Python
	case strings.Contains(content, "function ") || strings.Contains(content, "const ") ||
		strings.Contains(content, "=>"):
		return JavaScript
	case strings.Contains(content, "package main"):
		return Go
	default:
		return Unknown
	}
}
