package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Record kinds with a published schema.
const (
	RecordCell  = "cell"
	RecordPlant = "plant"
	RecordActor = "actor"
	RecordState = "state"
)

const schemaBase = "https://gridlife.ai/schemas/"

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemaErr  error
	schemaSet  map[string]*jsonschema.Schema
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7

	files, err := fs.Glob(schemaFS, "schemas/*.schema.json")
	if err != nil {
		schemaErr = err
		return
	}
	for _, f := range files {
		b, err := schemaFS.ReadFile(f)
		if err != nil {
			schemaErr = err
			return
		}
		if err := c.AddResource(schemaBase+path.Base(f), bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add %s: %w", f, err)
			return
		}
	}

	schemaSet = map[string]*jsonschema.Schema{}
	for _, kind := range []string{RecordCell, RecordPlant, RecordActor, RecordState} {
		s, err := c.Compile(schemaBase + kind + ".schema.json")
		if err != nil {
			schemaErr = fmt.Errorf("compile %s: %w", kind, err)
			return
		}
		schemaSet[kind] = s
	}
}

// ValidateRecord checks raw JSON against the schema for kind.
func ValidateRecord(kind string, raw []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s, ok := schemaSet[kind]
	if !ok {
		return fmt.Errorf("no schema for record kind %q", kind)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}

// SchemaNames lists the embedded schema files, for tooling.
func SchemaNames() []string {
	files, _ := fs.Glob(schemaFS, "schemas/*.schema.json")
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, strings.TrimPrefix(f, "schemas/"))
	}
	return out
}
