package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

var compiled map[string]*jsonschema.Schema

func init() {
	compiled = map[string]*jsonschema.Schema{
		"chunking":    mustCompileSchema(chunkingSchemaJSON, "chunking.schema.json"),
		"needs":       mustCompileSchema(needsSchemaJSON, "needs.schema.json"),
		"painpoints":  mustCompileSchema(painpointsSchemaJSON, "painpoints.schema.json"),
		"demand":      mustCompileSchema(demandSchemaJSON, "demand.schema.json"),
		"opportunity": mustCompileSchema(opportunitySchemaJSON, "opportunity.schema.json"),
		"report":      mustCompileSchema(reportSchemaJSON, "report.schema.json"),
	}
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// Known reports whether a result schema with the given name exists.
func Known(name string) bool {
	_, ok := compiled[name]
	return ok
}

// Validate checks an agent result payload against its named schema and returns
// a single error listing every violation.
func Validate(name string, raw json.RawMessage) error {
	sch, ok := compiled[name]
	if !ok {
		return fmt.Errorf("unknown result schema %q", name)
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("parse result: %w", err)
	}

	err := sch.Validate(instance)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("schema %s: %w", name, err)
	}

	var errs []string
	collectSchemaErrors(ve, &errs)
	return fmt.Errorf("result does not match %s schema: %s", name, strings.Join(errs, "; "))
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
