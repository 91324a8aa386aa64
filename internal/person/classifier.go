package person

import (
	"github.com/nao1215/peoplenet/internal/infobox"
	"github.com/nao1215/peoplenet/internal/model"
)

// DefaultMarkers are the infobox fields that mark a person page.
var DefaultMarkers = []string{"birth_date"}

// Classifier classifies pages by the presence of marker fields.
// A Classifier is immutable and safe for concurrent use.
type Classifier struct {
	// markers holds the FieldKey form of every marker field.
	markers map[string]bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMarkers replaces the marker fields. An empty list keeps the defaults.
func WithMarkers(fields ...string) Option {
	return func(c *Classifier) {
		if len(fields) == 0 {
			return
		}
		c.markers = make(map[string]bool, len(fields))
		for _, f := range fields {
			if key := infobox.FieldKey(f); key != "" {
				c.markers[key] = true
			}
		}
	}
}

// NewClassifier creates a Classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{}
	WithMarkers(DefaultMarkers...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsPerson reports whether page describes a person.
func (c *Classifier) IsPerson(page *model.Page) bool {
	if page == nil || page.Sidebar == "" {
		return false
	}
	return c.IsPersonBox(infobox.Parse(page.Sidebar))
}

// IsPersonBox is IsPerson for an already parsed infobox.
func (c *Classifier) IsPersonBox(box *infobox.Infobox) bool {
	for marker := range c.markers {
		if box.Has(marker) {
			return true
		}
	}
	return false
}
