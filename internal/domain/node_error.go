package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/noderun/internal/xjson"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const nodeErrorSchema = `{
  "type": "object",
  "required": ["nodeId", "message", "timestamp", "recoverable"],
  "properties": {
    "nodeId": {"type": "string", "minLength": 1},
    "message": {"type": "string", "minLength": 1},
    "code": {"type": "string"},
    "timestamp": {"type": "string", "format": "date-time"},
    "stack": {"type": "string"},
    "recoverable": {"type": "boolean"}
  }
}`

var (
	nodeErrorSchemaOnce     sync.Once
	compiledNodeErrorSchema *jsonschema.Schema
	nodeErrorSchemaErr      error
)

func loadNodeErrorSchema() (*jsonschema.Schema, error) {
	nodeErrorSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.AssertFormat = true
		if err := c.AddResource("node_error.json", strings.NewReader(nodeErrorSchema)); err != nil {
			nodeErrorSchemaErr = err
			return
		}
		compiledNodeErrorSchema, nodeErrorSchemaErr = c.Compile("node_error.json")
	})
	return compiledNodeErrorSchema, nodeErrorSchemaErr
}

type nodeErrorOptions struct {
	code        string
	recoverable bool
	stack       StackConfig
	timestamp   time.Time
}

type NodeErrorOption func(*nodeErrorOptions)

// WithCode overrides the code derived from the error's name.
func WithCode(code string) NodeErrorOption {
	return func(o *nodeErrorOptions) {
		o.code = code
	}
}

func WithRecoverable(recoverable bool) NodeErrorOption {
	return func(o *nodeErrorOptions) {
		o.recoverable = recoverable
	}
}

func WithStackConfig(cfg StackConfig) NodeErrorOption {
	return func(o *nodeErrorOptions) {
		o.stack = cfg
	}
}

func WithTimestamp(t time.Time) NodeErrorOption {
	return func(o *nodeErrorOptions) {
		o.timestamp = t
	}
}

// CreateNodeError normalizes err into a NodeError and rejects the result
// with a *ValidationError when it does not have the required shape.
func CreateNodeError(nodeID string, err interface{}, opts ...NodeErrorOption) (NodeError, error) {
	options := nodeErrorOptions{stack: DefaultStackConfig()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.timestamp.IsZero() {
		options.timestamp = time.Now()
	}

	normalized := NormalizeError(err)
	code := strings.TrimSpace(options.code)
	if code == "" {
		code = normalized.Name
	}

	nodeErr := NodeError{
		NodeID:      strings.TrimSpace(nodeID),
		Message:     strings.TrimSpace(normalized.Message),
		Code:        code,
		Timestamp:   options.timestamp.UTC().Format(time.RFC3339Nano),
		Stack:       SanitizeStack(normalized.Stack, options.stack),
		Recoverable: options.recoverable,
	}

	if verr := ValidateNodeError(nodeErr); verr != nil {
		return NodeError{}, verr
	}
	return nodeErr, nil
}

func ValidateNodeError(nodeErr NodeError) error {
	schema, err := loadNodeErrorSchema()
	if err != nil {
		return fmt.Errorf("compile node error schema: %w", err)
	}

	data, err := xjson.Marshal(nodeErr)
	if err != nil {
		return &ValidationError{Subject: "node error", Issues: []string{err.Error()}}
	}

	var doc interface{}
	if err := xjson.Unmarshal(data, &doc); err != nil {
		return &ValidationError{Subject: "node error", Issues: []string{err.Error()}}
	}

	if err := schema.Validate(doc); err != nil {
		var schemaErr *jsonschema.ValidationError
		if errors.As(err, &schemaErr) {
			return &ValidationError{Subject: "node error", Issues: schemaIssues(schemaErr)}
		}
		return &ValidationError{Subject: "node error", Issues: []string{err.Error()}}
	}
	return nil
}

func schemaIssues(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		return []string{fmt.Sprintf("%s: %s", location, err.Message)}
	}

	var issues []string
	for _, cause := range err.Causes {
		issues = append(issues, schemaIssues(cause)...)
	}
	return issues
}
