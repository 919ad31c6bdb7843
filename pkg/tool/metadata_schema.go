package tool

// MetadataSchema is the JSON Schema a stored function.json must satisfy.
// parameters is required but its content is not inspected.
const MetadataSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Tool Metadata",
  "type": "object",
  "required": ["name", "description", "parameters"],
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "description": {
      "type": "string"
    },
    "parameters": {},
    "dependencies": {
      "type": "object",
      "additionalProperties": {
        "type": "string"
      }
    }
  }
}`
