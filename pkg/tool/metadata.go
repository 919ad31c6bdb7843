package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"
)

// ParseMetadata turns caller input into a Metadata record.
// Input that is valid JSON is decoded directly, anything else is treated
// as the path of a JSON file.
func ParseMetadata(input string) (*Metadata, error) {
	metadata, _, err := parseMetadataDocument(input)
	return metadata, err
}

// parseMetadataDocument is ParseMetadata that also returns the JSON
// document the record was decoded from
func parseMetadataDocument(input string) (*Metadata, []byte, error) {
	data := []byte(input)
	if !json.Valid(data) {
		content, err := os.ReadFile(input)
		if err != nil {
			return nil, nil, newError(CodeMetadataParse, "", "could not parse metadata as JSON or read it as a file", err)
		}
		data = content
	}

	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, nil, newError(CodeMetadataParse, "", "could not parse metadata JSON", err)
	}
	return &metadata, bytes.TrimSpace(data), nil
}

// UnmarshalJSON decodes a function.json object
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Metadata
	for key, raw := range fields {
		var err error
		switch key {
		case "name":
			err = json.Unmarshal(raw, &out.Name)
		case "description":
			err = json.Unmarshal(raw, &out.Description)
		case "dependencies":
			err = json.Unmarshal(raw, &out.Dependencies)
		case "parameters":
			out.Parameters, err = compactJSON(raw)
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key], err = compactJSON(raw)
		}
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	*m = out
	return nil
}

// MarshalJSON encodes the record with its unknown fields. Keys come out
// in sorted order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(m.Extra)+4)
	for key, raw := range m.Extra {
		fields[key] = raw
	}

	params := m.Parameters
	if len(params) == 0 {
		params = json.RawMessage("null")
	}
	fields["name"] = m.Name
	fields["description"] = m.Description
	fields["parameters"] = params
	if m.Dependencies != nil {
		fields["dependencies"] = m.Dependencies
	}
	return json.Marshal(fields)
}

func compactJSON(raw json.RawMessage) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// metadataValidator checks function.json documents against MetadataSchema
type metadataValidator struct {
	schema *gojsonschema.Schema
}

func newMetadataValidator() *metadataValidator {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(MetadataSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid metadata schema: %v", err))
	}
	return &metadataValidator{schema: schema}
}

func (v *metadataValidator) validate(data []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for i, err := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += err.String()
		}
		return fmt.Errorf("schema validation errors: %s", errMsg)
	}
	return nil
}

// readMetadata loads and validates the function.json inside dir
func (v *metadataValidator) readMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", MetadataFileName, err)
	}

	if err := v.validate(data); err != nil {
		return nil, err
	}

	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", MetadataFileName, err)
	}
	return &metadata, nil
}
