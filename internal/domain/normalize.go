package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

const truncatedMarker = "\n...[truncated]"

// NormalizedError is the canonical shape every failure value is reduced to
// before it is logged or recorded on the workflow state.
type NormalizedError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

type StackConfig struct {
	MaxLength          int      `json:"max_length" yaml:"max_length"`
	FilterDependencies bool     `json:"filter_dependencies" yaml:"filter_dependencies"`
	PreservePrefixes   []string `json:"preserve_prefixes,omitempty" yaml:"preserve_prefixes,omitempty"`
}

func (c StackConfig) Validate() error {
	if c.MaxLength < 0 {
		return NewConfigError("stack", "max_length", "maxLength must be non-negative")
	}
	return nil
}

// NormalizeError accepts any failure value, including nil and non-error
// values, and never panics.
func NormalizeError(v interface{}) (out NormalizedError) {
	defer func() {
		if r := recover(); r != nil {
			out = NormalizedError{
				Name:    CodeUnknown,
				Message: fmt.Sprintf("unprintable error value of type %T", v),
			}
		}
	}()

	switch value := v.(type) {
	case nil:
		return NormalizedError{Name: CodeUnknown, Message: "unknown error"}
	case error:
		return NormalizedError{
			Name:    errorName(value),
			Message: value.Error(),
			Stack:   errorStack(value),
		}
	case string:
		return NormalizedError{Name: "Error", Message: value}
	case fmt.Stringer:
		return NormalizedError{Name: typeName(value), Message: value.String()}
	default:
		return NormalizedError{Name: typeName(value), Message: fmt.Sprintf("%v", value)}
	}
}

func errorName(err error) string {
	var named interface{ Name() string }
	if errors.As(err, &named) {
		if name := strings.TrimSpace(named.Name()); name != "" {
			return name
		}
	}

	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return code
		}
	}

	name := typeName(err)
	switch name {
	case "errorString", "wrapError", "wrapErrors", "joinError", "permanentError":
		return "Error"
	}
	return name
}

func errorStack(err error) string {
	var traced interface{ StackTrace() string }
	if errors.As(err, &traced) {
		return traced.StackTrace()
	}
	return ""
}

func typeName(v interface{}) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return CodeUnknown
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.Kind().String()
	}
	return t.Name()
}

// SanitizeStack drops Go runtime, standard library and module cache frames
// when FilterDependencies is set, then truncates to MaxLength bytes. Frames
// whose function starts with one of PreservePrefixes are always kept.
func SanitizeStack(stack string, cfg StackConfig) string {
	if stack == "" {
		return ""
	}

	if cfg.FilterDependencies {
		stack = filterFrames(stack, cfg.PreservePrefixes)
	}

	if cfg.MaxLength > 0 && len(stack) > cfg.MaxLength {
		return stack[:cfg.MaxLength] + truncatedMarker
	}
	return stack
}

func filterFrames(stack string, preserve []string) string {
	lines := strings.Split(strings.TrimRight(stack, "\n"), "\n")
	kept := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "goroutine ") || strings.TrimSpace(line) == "" {
			kept = append(kept, line)
			continue
		}

		location := ""
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "\t") {
			location = lines[i+1]
			i++
		}

		if isDependencyFrame(line, location) && !hasAnyPrefix(frameFunction(line), preserve) {
			continue
		}

		kept = append(kept, line)
		if location != "" {
			kept = append(kept, location)
		}
	}

	return strings.Join(kept, "\n")
}

func frameFunction(line string) string {
	fn := strings.TrimPrefix(strings.TrimSpace(line), "created by ")
	if idx := strings.Index(fn, " in goroutine"); idx >= 0 {
		fn = fn[:idx]
	}
	return fn
}

func isDependencyFrame(line, location string) bool {
	if strings.Contains(location, "/pkg/mod/") {
		return true
	}

	fn := frameFunction(line)
	if strings.HasPrefix(fn, "main.") {
		return false
	}

	root := fn
	if idx := strings.Index(root, "/"); idx >= 0 {
		root = root[:idx]
	} else if idx := strings.Index(root, "."); idx >= 0 {
		root = root[:idx]
	}
	return !strings.Contains(root, ".")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
