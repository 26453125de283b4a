package discovery

import (
	"path"
	"strings"
)

// translatePattern rewrites an fnmatch-style pattern into path.Match syntax:
// "[!" negates a class, "]" right after "[" or "[!" is literal, an unterminated
// "[" is literal and a backslash is a plain character. matchable is false when
// the pattern holds a class that can never match.
func translatePattern(pattern string) (translated string, matchable bool) {
	var out strings.Builder
	out.Grow(len(pattern) + 8)
	matchable = true

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		switch c {
		case '\\':
			out.WriteString(`\\`)
		case '[':
			end := classEnd(pattern, i)
			if end < 0 {
				out.WriteString(`\[`)
				continue
			}

			j := i + 1
			negate := false
			if pattern[j] == '!' {
				negate = true
				j++
			}

			class, ok := translateClass([]rune(pattern[j:end]), negate)
			if !ok {
				matchable = false
			}
			out.WriteString(class)
			i = end
		default:
			out.WriteByte(c)
		}
	}

	return out.String(), matchable
}

// translateClass rewrites a bracket expression body. A "-" joins a range only
// between two characters; every other "-" is literal. Descending ranges match
// nothing and are dropped. ok is false when nothing is left to match.
func translateClass(body []rune, negate bool) (class string, ok bool) {
	chunks := splitRanges(body)

	for k := len(chunks) - 1; k > 0; k-- {
		prev, next := chunks[k-1], chunks[k]
		if len(prev) == 0 || len(next) == 0 || prev[len(prev)-1] <= next[0] {
			continue
		}

		merged := make([]rune, 0, len(prev)+len(next)-2)
		merged = append(merged, prev[:len(prev)-1]...)
		merged = append(merged, next[1:]...)
		chunks[k-1] = merged
		chunks = append(chunks[:k], chunks[k+1:]...)
	}

	var out strings.Builder
	for k, chunk := range chunks {
		if k > 0 {
			out.WriteByte('-')
		}
		for _, r := range chunk {
			if strings.ContainsRune(`\-]^[`, r) {
				out.WriteByte('\\')
			}
			out.WriteRune(r)
		}
	}

	switch {
	case out.Len() == 0 && negate:
		return "?", true
	case out.Len() == 0:
		return "", false
	case negate:
		return "[^" + out.String() + "]", true
	}

	return "[" + out.String() + "]", true
}

// splitRanges cuts body at the dashes that join ranges. The first character
// never starts with a range dash, and the character after a range is searched
// past its end.
func splitRanges(body []rune) [][]rune {
	if len(body) == 0 {
		return nil
	}

	var chunks [][]rune
	start, k := 0, 1

	for k < len(body) {
		idx := indexRune(body[k:], '-')
		if idx < 0 {
			break
		}
		k += idx
		chunks = append(chunks, body[start:k])
		start = k + 1
		k += 3
	}

	if start < len(body) {
		return append(chunks, body[start:])
	}

	last := chunks[len(chunks)-1]
	chunks[len(chunks)-1] = append(append([]rune{}, last...), '-')
	return chunks
}

func indexRune(runes []rune, r rune) int {
	for i, candidate := range runes {
		if candidate == r {
			return i
		}
	}
	return -1
}

// classEnd returns the index of the "]" closing the class opened at start, or -1.
func classEnd(pattern string, start int) int {
	j := start + 1
	if j < len(pattern) && pattern[j] == '!' {
		j++
	}
	if j < len(pattern) && pattern[j] == ']' {
		j++
	}

	for ; j < len(pattern); j++ {
		if pattern[j] == ']' {
			return j
		}
	}

	return -1
}

// Glob is a compiled shell-style pattern matched against single file names.
type Glob struct {
	pattern    string
	translated string
	matchable  bool
}

// CompileGlob validates pattern and prepares it for matching.
func CompileGlob(pattern string) (*Glob, error) {
	translated, matchable := translatePattern(pattern)

	if _, err := path.Match(translated, ""); err != nil {
		return nil, err
	}

	return &Glob{pattern: pattern, translated: translated, matchable: matchable}, nil
}

// Match reports whether name matches. Matching is case-sensitive and
// wildcards never cross a "/".
func (g *Glob) Match(name string) bool {
	if !g.matchable {
		return false
	}
	matched, err := path.Match(g.translated, name)
	return err == nil && matched
}

func (g *Glob) String() string {
	return g.pattern
}
