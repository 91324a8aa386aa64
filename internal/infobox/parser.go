package infobox

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// maxFieldNameLength bounds what is accepted as a field name. Longer
// "names" are prose that happens to contain an equals sign.
const maxFieldNameLength = 64

// Infobox is the parsed form of a page's infobox.
type Infobox struct {
	// Fields are the named parameters in textual order.
	Fields []Field
}

// Field is one "name = value" parameter.
type Field struct {
	// Name is the field name as written, trimmed.
	Name string

	// Value is the raw wikitext value, trimmed.
	Value string

	// Links are the well-formed links found in Value, in textual order.
	Links []Link
}

// Link is one [[Target]] or [[Target|Display]] occurrence.
type Link struct {
	// Target is the normalized title the link points to.
	Target string

	// Display is the text after the pipe, empty for plain links.
	Display string
}

// Relation is the set of distinct targets linked from one field.
type Relation struct {
	// Field is the field name as written.
	Field string

	// Targets are the distinct link targets in textual order.
	Targets []string
}

// Parse parses the infobox parameters out of a lead section.
//
// When the text contains one or more top-level {{Infobox ...}} templates
// their parameters are used. Otherwise the whole text is treated as a
// pipe-separated parameter list, which covers bare "| a = b | c = d" input.
func Parse(text string) *Infobox {
	text = stripComments(text)

	var params []string
	found := false
	for _, body := range topLevelTemplates(text) {
		segments := splitParams(body)
		if !isInfoboxName(segments[0]) {
			continue
		}
		found = true
		params = append(params, segments[1:]...)
	}
	if !found {
		params = splitParams(text)
	}

	box := &Infobox{Fields: make([]Field, 0, len(params))}
	for _, param := range params {
		if field, ok := parseField(param); ok {
			box.Fields = append(box.Fields, field)
		}
	}
	return box
}

// ExtractLinks returns the distinct link targets of all fields, sorted.
func ExtractLinks(text string) []string {
	return Parse(text).Links()
}

// LinkInfo returns, in textual order, the names of the fields whose value
// links to target. A field is listed once even if it links target twice.
func LinkInfo(text, target string) []string {
	return Parse(text).LinkInfo(target)
}

// Links returns the distinct link targets of all fields, sorted.
func (b *Infobox) Links() []string {
	seen := make(map[string]bool)
	links := make([]string, 0)
	for _, f := range b.Fields {
		for _, l := range f.Links {
			if !seen[l.Target] {
				seen[l.Target] = true
				links = append(links, l.Target)
			}
		}
	}
	sort.Strings(links)
	return links
}

// LinkInfo returns the names of the fields linking to target.
func (b *Infobox) LinkInfo(target string) []string {
	target = NormalizeTitle(target)
	infos := make([]string, 0)
	if target == "" {
		return infos
	}
	for _, f := range b.Fields {
		for _, l := range f.Links {
			if l.Target == target {
				infos = append(infos, f.Name)
				break
			}
		}
	}
	return infos
}

// Relations returns the fields that carry at least one link.
func (b *Infobox) Relations() []Relation {
	relations := make([]Relation, 0)
	for _, f := range b.Fields {
		if len(f.Links) == 0 {
			continue
		}
		seen := make(map[string]bool, len(f.Links))
		rel := Relation{Field: f.Name}
		for _, l := range f.Links {
			if !seen[l.Target] {
				seen[l.Target] = true
				rel.Targets = append(rel.Targets, l.Target)
			}
		}
		relations = append(relations, rel)
	}
	return relations
}

// Has reports whether the infobox has a field with the given name.
// Names are compared with FieldKey.
func (b *Infobox) Has(name string) bool {
	key := FieldKey(name)
	for _, f := range b.Fields {
		if FieldKey(f.Name) == key {
			return true
		}
	}
	return false
}

// FieldKey returns the comparison form of a field name: case folded, with
// runs of spaces turned into a single underscore. "Birth date" and
// "birth_date" share a key.
func FieldKey(name string) string {
	folded := cases.Fold().String(strings.TrimSpace(name))
	return strings.Join(strings.Fields(strings.ReplaceAll(folded, "_", " ")), "_")
}

// parseField splits one parameter into a field. Positional parameters and
// parameters whose name is not an identifier are rejected.
func parseField(param string) (Field, bool) {
	eq := indexTopLevel(param, '=')
	if eq < 0 {
		return Field{}, false
	}

	name := strings.TrimSpace(param[:eq])
	if !isFieldName(name) {
		return Field{}, false
	}

	value := strings.TrimSpace(param[eq+1:])
	return Field{
		Name:  name,
		Value: value,
		Links: scanLinks(value),
	}, true
}

// isFieldName reports whether name looks like a template parameter name.
func isFieldName(name string) bool {
	if name == "" || len(name) > maxFieldNameLength {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != ' ' && r != '-' {
			return false
		}
	}
	return true
}

// isInfoboxName reports whether a template name denotes an infobox.
func isInfoboxName(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "template:")
	return strings.HasPrefix(name, "infobox")
}

// stripComments removes <!-- --> comments. An unclosed comment runs to the
// end of the text, as it does when MediaWiki renders the page.
func stripComments(text string) string {
	if !strings.Contains(text, "<!--") {
		return text
	}

	var sb strings.Builder
	for {
		start := strings.Index(text, "<!--")
		if start < 0 {
			sb.WriteString(text)
			break
		}
		sb.WriteString(text[:start])
		end := strings.Index(text[start+4:], "-->")
		if end < 0 {
			break
		}
		text = text[start+4+end+3:]
	}
	return sb.String()
}
