// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool

import (
	"fmt"
	"strings"
)

// validateArgs checks an argument map against the subset of JSON Schema the
// tool specs actually use: required keys, property types, enum membership,
// and additionalProperties: false. Failures read as model-facing text since
// they travel back in a ToolResult.
func validateArgs(schema map[string]any, args map[string]any) error {
	if schema == nil {
		return nil
	}

	props, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]any); ok {
		var missing []string
		for _, r := range required {
			name, ok := r.(string)
			if !ok {
				continue
			}
			if _, present := args[name]; !present {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required argument(s): %s", strings.Join(missing, ", "))
		}
	}

	if closed, ok := schema["additionalProperties"].(bool); ok && !closed {
		for name := range args {
			if _, known := props[name]; !known {
				return fmt.Errorf("unknown argument %q", name)
			}
		}
	}

	for name, value := range args {
		propAny, ok := props[name]
		if !ok {
			continue
		}
		prop, ok := propAny.(map[string]any)
		if !ok {
			continue
		}
		if err := checkValue(name, prop, value); err != nil {
			return err
		}
	}

	return nil
}

func checkValue(name string, prop map[string]any, value any) error {
	if value == nil {
		return fmt.Errorf("argument %q must not be null", name)
	}

	wantType, _ := prop["type"].(string)
	switch wantType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("argument %q must be a string", name)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", name)
		}
	case "integer":
		switch v := value.(type) {
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("argument %q must be an integer", name)
			}
		case int, int64:
		default:
			return fmt.Errorf("argument %q must be an integer", name)
		}
	case "number":
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("argument %q must be a number", name)
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("argument %q must be an array", name)
		}
		if itemsAny, ok := prop["items"].(map[string]any); ok {
			for i, item := range arr {
				if err := checkValue(fmt.Sprintf("%s[%d]", name, i), itemsAny, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("argument %q must be an object", name)
		}
		if err := validateArgs(prop, obj); err != nil {
			return fmt.Errorf("in argument %q: %w", name, err)
		}
	}

	if enum, ok := prop["enum"].([]any); ok {
		for _, allowed := range enum {
			if value == allowed {
				return nil
			}
		}
		var opts []string
		for _, allowed := range enum {
			opts = append(opts, fmt.Sprint(allowed))
		}
		return fmt.Errorf("argument %q must be one of: %s", name, strings.Join(opts, ", "))
	}

	return nil
}
