package perfcounter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// ErrInvalidSnapshot is returned when a counter snapshot document does not
// match the snapshot schema.
var ErrInvalidSnapshot = errors.New("invalid counter snapshot")

// snapshotSchema accepts an object whose members are numbers or arrays of numbers.
const snapshotSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": {
		"oneOf": [
			{"type": "number"},
			{"type": "array", "items": {"type": "number"}}
		]
	}
}`

var compiledSnapshotSchema = mustCompileSnapshotSchema()

func mustCompileSnapshotSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("snapshot.json", strings.NewReader(snapshotSchema)); err != nil {
		panic(fmt.Sprintf("perfcounter: invalid snapshot schema: %v", err))
	}
	schema, err := compiler.Compile("snapshot.json")
	if err != nil {
		panic(fmt.Sprintf("perfcounter: invalid snapshot schema: %v", err))
	}
	return schema
}

// JSONSource reads counter values from a JSON snapshot document.
//
// A snapshot maps counter names to a number or an array of numbers:
//
//	{"PerfCpuUtilization": 12.5, "PerfIisQueueSize": [3, 4]}
//
// When Root is set, it is a gjson path selecting the snapshot object inside a
// larger document (for example "counters" or "host.perf").
type JSONSource struct {
	// Path is the snapshot file, re-read on every collection. Ignored when Data is set.
	Path string

	// Data is an in-memory snapshot document.
	Data []byte

	// Root selects the snapshot object within the document.
	Root string
}

// NewJSONFileSource creates a source that reads the snapshot at path on every collection.
func NewJSONFileSource(path string) *JSONSource {
	return &JSONSource{Path: path}
}

// Collect reads, validates and extracts the snapshot.
func (s *JSONSource) Collect(ctx context.Context) (Readings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := s.Data
	if data == nil {
		raw, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read counter snapshot: %w", err)
		}
		data = raw
	}

	return ParseSnapshot(data, s.Root)
}

// ParseSnapshot extracts the recognized counters from a snapshot document.
// Unrecognized names are ignored.
func ParseSnapshot(data []byte, root string) (Readings, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidSnapshot)
	}

	doc := gjson.ParseBytes(data)
	if root != "" {
		doc = doc.Get(root)
		if !doc.Exists() {
			return nil, fmt.Errorf("%w: root %q not found", ErrInvalidSnapshot, root)
		}
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(doc.Raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := compiledSnapshotSchema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	readings := NewReadings()
	for _, name := range AllNames() {
		value := doc.Get(name.String())
		if !value.Exists() {
			continue
		}
		if value.IsArray() {
			for _, item := range value.Array() {
				readings.Add(name.String(), item.Float())
			}
			continue
		}
		readings.Add(name.String(), value.Float())
	}

	return readings, nil
}
