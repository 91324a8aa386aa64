package infobox

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// skippedNamespaces are link prefixes that never name an article.
var skippedNamespaces = map[string]bool{
	"file":     true,
	"image":    true,
	"media":    true,
	"category": true,
}

// topLevelTemplates returns the bodies of the {{...}} templates that are not
// nested in another template. An unclosed template extends to the end of
// the text.
func topLevelTemplates(text string) []string {
	var bodies []string
	for i := 0; i+1 < len(text); {
		if text[i] != '{' || text[i+1] != '{' {
			i++
			continue
		}
		end := matchTemplate(text, i)
		if end < 0 {
			bodies = append(bodies, text[i+2:])
			break
		}
		bodies = append(bodies, text[i+2:end])
		i = end + 2
	}
	return bodies
}

// matchTemplate returns the index of the "}}" closing the template opened
// at start, or -1.
func matchTemplate(text string, start int) int {
	depth := 0
	for j := start; j+1 < len(text); {
		switch {
		case text[j] == '{' && text[j+1] == '{':
			depth++
			j += 2
		case text[j] == '}' && text[j+1] == '}':
			depth--
			if depth == 0 {
				return j
			}
			j += 2
		default:
			j++
		}
	}
	return -1
}

// splitParams splits s on the pipes that are not nested in a link or a
// template. The result always has at least one element. Link nesting ends
// at a line break since a link cannot span lines.
func splitParams(s string) []string {
	var segments []string
	links, templates, start := 0, 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\n':
			links = 0
		case strings.HasPrefix(s[i:], "[["):
			links++
			i++
		case strings.HasPrefix(s[i:], "]]") && links > 0:
			links--
			i++
		case strings.HasPrefix(s[i:], "{{"):
			templates++
			i++
		case strings.HasPrefix(s[i:], "}}") && templates > 0:
			templates--
			i++
		case s[i] == '|' && links == 0 && templates == 0:
			segments = append(segments, s[start:i])
			start = i + 1
		}
	}
	return append(segments, s[start:])
}

// indexTopLevel returns the index of the first c in s that is not nested in
// a link or a template, or -1.
func indexTopLevel(s string, c byte) int {
	links, templates := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "[["):
			links++
			i++
		case strings.HasPrefix(s[i:], "]]") && links > 0:
			links--
			i++
		case strings.HasPrefix(s[i:], "{{"):
			templates++
			i++
		case strings.HasPrefix(s[i:], "}}") && templates > 0:
			templates--
			i++
		case s[i] == c && links == 0 && templates == 0:
			return i
		}
	}
	return -1
}

// scanLinks returns the well-formed links of a value in textual order.
// Scanning resumes right after every "[[" so links nested in a caption are
// found as well.
func scanLinks(value string) []Link {
	var links []Link
	for i := 0; i+1 < len(value); i++ {
		if value[i] != '[' || value[i+1] != '[' {
			continue
		}
		if l, ok := readLink(value, i); ok {
			links = append(links, l)
		}
		i++
	}
	return links
}

// readLink reads the link opened at start. It fails on an unclosed link, a
// target containing markup, or a target in a skipped namespace.
func readLink(s string, start int) (Link, bool) {
	targetEnd, piped := -1, false
	for k := start + 2; k < len(s); k++ {
		c := s[k]
		if c == '|' {
			targetEnd, piped = k, true
			break
		}
		if c == ']' && k+1 < len(s) && s[k+1] == ']' {
			targetEnd = k
			break
		}
		if strings.IndexByte("[]{}<>\n", c) >= 0 {
			return Link{}, false
		}
	}
	if targetEnd < 0 {
		return Link{}, false
	}

	display := ""
	if piped {
		closeAt := matchLink(s, targetEnd+1)
		if closeAt < 0 {
			return Link{}, false
		}
		display = strings.TrimSpace(s[targetEnd+1 : closeAt])
	}

	target := NormalizeTitle(s[start+2 : targetEnd])
	if target == "" || isSkippedNamespace(target) {
		return Link{}, false
	}
	return Link{Target: target, Display: display}, true
}

// matchLink returns the index of the "]]" that closes a link whose display
// text starts at from, skipping over nested links. It returns -1 when the
// link is left open.
func matchLink(s string, from int) int {
	depth := 0
	for k := from; k+1 < len(s); {
		switch {
		case s[k] == '\n':
			return -1
		case s[k] == '[' && s[k+1] == '[':
			depth++
			k += 2
		case s[k] == ']' && s[k+1] == ']':
			if depth == 0 {
				return k
			}
			depth--
			k += 2
		default:
			k++
		}
	}
	return -1
}

// isSkippedNamespace reports whether a normalized title is a file, media or
// category link.
func isSkippedNamespace(title string) bool {
	prefix, _, ok := strings.Cut(title, ":")
	if !ok {
		return false
	}
	return skippedNamespaces[strings.ToLower(strings.TrimSpace(prefix))]
}

// NormalizeTitle returns the canonical spelling of a link target: a leading
// colon and any #fragment are dropped, underscores become spaces, runs of
// white space collapse, the text is NFC normalized and the first letter is
// upper cased. It returns "" when nothing is left.
func NormalizeTitle(title string) string {
	title = strings.TrimPrefix(strings.TrimSpace(title), ":")
	if i := strings.IndexByte(title, '#'); i >= 0 {
		title = title[:i]
	}
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.Join(strings.Fields(title), " ")
	title = norm.NFC.String(title)
	if title == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}
