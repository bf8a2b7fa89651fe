package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed catalog.json
var defaultCatalog []byte

// document mirrors the catalog JSON layout.
type document struct {
	Subjects []struct {
		Name   string  `json:"name"`
		Levels []Entry `json:"levels"`
	} `json:"subjects"`
}

// Default loads the embedded catalog. The embedded document is
// validated like any other, so a bad edit fails at startup rather
// than at access time.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile loads and validates a catalog from a JSON file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Load parses, schema-validates, and structurally validates a catalog
// document.
func Load(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		byKey:  make(map[key]*Entry),
		bySubj: make(map[string][]*Entry),
	}
	for _, s := range doc.Subjects {
		c.subjects = append(c.subjects, s.Name)
		for _, e := range s.Levels {
			e.Subject = s.Name
			c.entries = append(c.entries, e)
		}
	}
	for i := range c.entries {
		e := &c.entries[i]
		c.byKey[key{e.Subject, e.Level}] = e
		c.bySubj[e.Subject] = append(c.bySubj[e.Subject], e)
	}

	if err := validateEntries(c); err != nil {
		return nil, err
	}
	return c, nil
}

// validateSchema checks raw against catalogSchema.
func validateSchema(raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid catalog JSON: %w", err)
	}

	defBytes, err := json.Marshal(catalogSchema)
	if err != nil {
		return fmt.Errorf("marshal catalog schema: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return fmt.Errorf("parse catalog schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema://catalog.json", defParsed); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema://catalog.json")
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}

	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("catalog schema validation: %w", err)
	}
	return nil
}

// validateEntries performs the structural checks the schema cannot
// express. All problems are reported together.
func validateEntries(c *Catalog) error {
	var errs []string

	seenSubject := make(map[string]bool)
	for _, s := range c.subjects {
		if seenSubject[s] {
			errs = append(errs, fmt.Sprintf("duplicate subject %q", s))
		}
		seenSubject[s] = true
	}

	seen := make(map[key]bool, len(c.entries))
	for i := range c.entries {
		e := &c.entries[i]
		k := key{e.Subject, e.Level}
		if seen[k] {
			errs = append(errs, fmt.Sprintf("duplicate entry %s/%s", e.Subject, e.Level))
		}
		seen[k] = true

		if e.TargetB >= e.TargetA {
			errs = append(errs, fmt.Sprintf("%s/%s: target_b (%g) must be below target_a (%g)",
				e.Subject, e.Level, e.TargetB, e.TargetA))
		}

		for _, link := range []struct{ name, value string }{
			{"question_link", e.QuestionLink},
			{"answer_link", e.AnswerLink},
		} {
			if !validLink(link.value) {
				errs = append(errs, fmt.Sprintf("%s/%s: %s %q is not an absolute URI",
					e.Subject, e.Level, link.name, link.value))
			}
		}

		variantNames := make(map[string]bool, len(e.Variants))
		for _, v := range e.Variants {
			if variantNames[v.Name] {
				errs = append(errs, fmt.Sprintf("%s/%s: duplicate variant %q", e.Subject, e.Level, v.Name))
			}
			variantNames[v.Name] = true
			if v.QuestionLink != "" && !validLink(v.QuestionLink) {
				errs = append(errs, fmt.Sprintf("%s/%s variant %q: question_link %q is not an absolute URI",
					e.Subject, e.Level, v.Name, v.QuestionLink))
			}
			if v.AnswerLink != "" && !validLink(v.AnswerLink) {
				errs = append(errs, fmt.Sprintf("%s/%s variant %q: answer_link %q is not an absolute URI",
					e.Subject, e.Level, v.Name, v.AnswerLink))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validLink(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}
