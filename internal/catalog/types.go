// Package catalog holds the static drill catalog: subjects, levels,
// target times, and worksheet links. The catalog is loaded and
// validated once at startup and is immutable afterwards.
package catalog

// Variant is an alternate worksheet for a level, with its own links.
type Variant struct {
	Name         string `json:"name"`
	QuestionLink string `json:"question_link,omitempty"`
	AnswerLink   string `json:"answer_link,omitempty"`
}

// Entry describes one drill level within a subject. TargetA and
// TargetB are the two success-tier thresholds in seconds; TargetB is
// the stricter one (targetB < targetA by convention).
type Entry struct {
	Subject        string    `json:"-"`
	Level          string    `json:"level"`
	TargetA        float64   `json:"target_a"`
	TargetB        float64   `json:"target_b"`
	QuestionLink   string    `json:"question_link"`
	AnswerLink     string    `json:"answer_link"`
	TracksMistakes bool      `json:"tracks_mistakes,omitempty"`
	Variants       []Variant `json:"variants,omitempty"`
}

// HasVariant reports whether the entry defines a variant with the
// given name. The empty name always matches (no variant selected).
func (e *Entry) HasVariant(name string) bool {
	if name == "" {
		return true
	}
	for _, v := range e.Variants {
		if v.Name == name {
			return true
		}
	}
	return false
}

type key struct {
	subject string
	level   string
}

// Catalog is the validated (subject, level) lookup structure.
type Catalog struct {
	subjects []string
	entries  []Entry
	byKey    map[key]*Entry
	bySubj   map[string][]*Entry
}

// Lookup returns the entry for (subject, level), if any.
func (c *Catalog) Lookup(subject, level string) (*Entry, bool) {
	e, ok := c.byKey[key{subject, level}]
	return e, ok
}

// Subjects returns subject names in declaration order.
func (c *Catalog) Subjects() []string {
	out := make([]string, len(c.subjects))
	copy(out, c.subjects)
	return out
}

// Levels returns the entries of one subject in declaration order.
func (c *Catalog) Levels(subject string) []*Entry {
	return c.bySubj[subject]
}

// Entries returns every entry in declaration order, subjects first.
func (c *Catalog) Entries() []*Entry {
	out := make([]*Entry, 0, len(c.entries))
	for _, s := range c.subjects {
		out = append(out, c.bySubj[s]...)
	}
	return out
}

// Len returns the number of (subject, level) entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
