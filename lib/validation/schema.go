package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// PipelineConfigSchema defines the JSON schema for pipeline job list files
var PipelineConfigSchema = `{
	"type": "object",
	"properties": {
		"marker": {"type": "string", "minLength": 1},
		"jobs": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"path": {"type": "string", "minLength": 1}
				},
				"required": ["path"],
				"additionalProperties": false
			},
			"minItems": 1,
			"maxItems": 50
		}
	},
	"required": ["jobs"],
	"additionalProperties": false
}`

// ValidatePipelineConfig validates a JSON document against the pipeline config schema
func ValidatePipelineConfig(jsonData []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(PipelineConfigSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate JSON schema: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("JSON validation failed: %s", strings.Join(errorMessages, "; "))
	}

	return nil
}

// ValidateAndParsePipelineConfig validates and parses a pipeline config document
func ValidateAndParsePipelineConfig(jsonData []byte) (*PipelineConfigDocument, error) {
	if err := ValidatePipelineConfig(jsonData); err != nil {
		return nil, err
	}

	var doc PipelineConfigDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	SanitizePipelineConfig(&doc)
	if len(doc.Jobs) == 0 {
		return nil, fmt.Errorf("pipeline config has no usable jobs")
	}
	return &doc, nil
}

// PipelineJobItem is one entry of the ordered job list
type PipelineJobItem struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path"`
}

// PipelineConfigDocument is the on-disk shape of a pipeline config file
type PipelineConfigDocument struct {
	Marker string            `json:"marker,omitempty"`
	Jobs   []PipelineJobItem `json:"jobs"`
}

// SanitizePipelineConfig trims whitespace and drops jobs whose path is blank.
func SanitizePipelineConfig(doc *PipelineConfigDocument) {
	doc.Marker = strings.TrimSpace(doc.Marker)

	var cleanJobs []PipelineJobItem
	for _, job := range doc.Jobs {
		if strings.TrimSpace(job.Path) == "" {
			continue
		}
		job.Path = strings.TrimSpace(job.Path)
		job.Name = strings.TrimSpace(job.Name)
		cleanJobs = append(cleanJobs, job)
	}
	doc.Jobs = cleanJobs
}
