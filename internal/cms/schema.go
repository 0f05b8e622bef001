package cms

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://finitefield.org/shopper-web/schemas/"

// Validator checks collection records against the embedded JSON Schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// ValidationIssue is one schema violation.
type ValidationIssue struct {
	Location string
	Message  string
}

// SchemaError reports every violation found in a record.
type SchemaError struct {
	Collection string
	Issues     []ValidationIssue
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		loc := issue.Location
		if loc == "" {
			loc = "/"
		}
		parts = append(parts, loc+": "+issue.Message)
	}
	return fmt.Sprintf("cms: %s record invalid: %s", e.Collection, strings.Join(parts, "; "))
}

// NewValidator compiles every embedded schema.
func NewValidator() (*Validator, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(schemaBaseURL+entry.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("cms: add schema %s: %w", entry.Name(), err)
		}
		names = append(names, entry.Name())
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		schema, err := compiler.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("cms: compile schema %s: %w", name, err)
		}
		v.schemas[strings.TrimSuffix(name, ".json")] = schema
	}
	return v, nil
}

// Collections lists the collections that carry a schema.
func (v *Validator) Collections() []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, len(v.schemas))
	for name := range v.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks rec against the schema of collection. Collections without a
// schema always pass.
func (v *Validator) Validate(collection string, rec Record) error {
	if v == nil {
		return nil
	}
	schema, ok := v.schemas[collection]
	if !ok {
		return nil
	}
	doc, err := jsonDocument(rec)
	if err != nil {
		return fmt.Errorf("cms: normalise %s record: %w", collection, err)
	}
	if err := schema.Validate(doc); err != nil {
		var vErr *jsonschema.ValidationError
		if errors.As(err, &vErr) {
			return &SchemaError{Collection: collection, Issues: collectIssues(vErr)}
		}
		return err
	}
	return nil
}

// jsonDocument round-trips rec through encoding/json so that dates, nested
// YAML maps and integer types reach the validator in their JSON form.
func jsonDocument(rec Record) (any, error) {
	data, err := json.Marshal(map[string]any(rec))
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func collectIssues(err *jsonschema.ValidationError) []ValidationIssue {
	issues := []ValidationIssue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, ValidationIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
