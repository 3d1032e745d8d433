package openrouter

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var violationPrinter = message.NewPrinter(language.English)

// validateContent checks content against the schema body and returns the
// violation messages. A nil slice with a nil error means the content is valid.
// The error return is reserved for schemas that cannot be compiled.
func validateContent(schema *ResponseSchema, content string) ([]string, error) {
	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, err
	}
	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(content))
	if err != nil {
		return []string{fmt.Sprintf("content is not valid JSON: %v", err)}, nil
	}
	err = compiled.Validate(instance)
	if err == nil {
		return nil, nil
	}
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []string{err.Error()}, nil
	}
	violations := collectViolations(validationErr, nil)
	if len(violations) == 0 {
		violations = []string{strings.TrimSpace(validationErr.Error())}
	}
	sort.Strings(violations)
	return violations, nil
}

func compileSchema(schema *ResponseSchema) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema.Body))
	if err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", schemaName(schema), err)
	}
	location := "mem://schemas/" + url.PathEscape(schemaName(schema)) + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(location, doc); err != nil {
		return nil, fmt.Errorf("load schema %q: %w", schemaName(schema), err)
	}
	compiled, err := compiler.Compile(location)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", schemaName(schema), err)
	}
	return compiled, nil
}

func collectViolations(ve *jsonschema.ValidationError, out []string) []string {
	if ve == nil {
		return out
	}
	if len(ve.Causes) == 0 {
		location := "/" + strings.Join(ve.InstanceLocation, "/")
		detail := ve.Error()
		if ve.ErrorKind != nil {
			detail = ve.ErrorKind.LocalizedString(violationPrinter)
		}
		return append(out, fmt.Sprintf("%s: %s", location, detail))
	}
	for _, cause := range ve.Causes {
		out = collectViolations(cause, out)
	}
	return out
}
