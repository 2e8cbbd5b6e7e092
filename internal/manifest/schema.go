package manifest

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/extractor_v1.json schemas/planner_v1.json
var canonicalSchemas embed.FS

// ExtractorSchema and PlannerSchema are the two canonical JSON Schemas
// loaded at startup: the allowed shapes of ExtractorOutput and PlanOutput
// respectively. Oracle outputs are validated against these before use.
var (
	ExtractorSchema *jsonschema.Schema
	PlannerSchema   *jsonschema.Schema

	// ExtractorSchemaJSON and PlannerSchemaJSON are the raw schema documents,
	// exposed so prompt builders can show the oracle the exact constraint its
	// output will be validated against.
	ExtractorSchemaJSON []byte
	PlannerSchemaJSON   []byte
)

func init() {
	var err error
	ExtractorSchemaJSON, err = canonicalSchemas.ReadFile("schemas/extractor_v1.json")
	if err != nil {
		panic(fmt.Sprintf("manifest: failed to read extractor_v1.json: %v", err))
	}
	PlannerSchemaJSON, err = canonicalSchemas.ReadFile("schemas/planner_v1.json")
	if err != nil {
		panic(fmt.Sprintf("manifest: failed to read planner_v1.json: %v", err))
	}
	ExtractorSchema, err = compileEmbedded("schemas/extractor_v1.json")
	if err != nil {
		panic(fmt.Sprintf("manifest: failed to compile extractor_v1.json: %v", err))
	}
	PlannerSchema, err = compileEmbedded("schemas/planner_v1.json")
	if err != nil {
		panic(fmt.Sprintf("manifest: failed to compile planner_v1.json: %v", err))
	}
}

func compileEmbedded(path string) (*jsonschema.Schema, error) {
	data, err := canonicalSchemas.ReadFile(path)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(path, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return compiler.Compile(path)
}

// argsSchemaCache holds compiled args_schema documents keyed by tool name
// and raw schema bytes, since the same schema is reused across every call
// to a given tool.
var argsSchemaCache sync.Map // map[string]*jsonschema.Schema

// CompileArgsSchema compiles (or returns the cached compilation of) a tool's
// args_schema JSON Schema document.
func CompileArgsSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	key := name + ":" + string(raw)
	if cached, ok := argsSchemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiler := jsonschema.NewCompiler()
	resourceName := name + "_args.json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("manifest: invalid args_schema for %s: %w", name, err)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("manifest: invalid args_schema for %s: %w", name, err)
	}
	argsSchemaCache.Store(key, schema)
	return schema, nil
}
