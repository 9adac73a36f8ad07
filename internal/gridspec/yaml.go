// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package gridspec

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
)

const (
	keyProgram    = "program"
	keyParameters = "parameters"
	keyValues     = "values"
	keyValue      = "value"
	keyMin        = "min"
	keyMax        = "max"
	keyStep       = "step"
)

// yamlDoc keeps parameters as a MapSlice so that declared order survives decoding.
type yamlDoc struct {
	Program    any           `yaml:"program"`
	Parameters yaml.MapSlice `yaml:"parameters"`
}

// ParseYAML parses a YAML grid spec:
//
//	program: python train.py
//	parameters:
//	  lr:
//	    values: [0.1, 0.01]
//	  seed:
//	    min: 0
//	    max: 3
//	  model:
//	    value: resnet
func ParseYAML(data []byte) (*Spec, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("grid spec error: %w", err)
	}

	var doc yamlDoc
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("grid spec error: %w", err)
	}

	program, ok := doc.Program.(string)
	if _, present := raw[keyProgram]; !present || !ok || ProcessProgram(program) == "" {
		return nil, ErrNoProgram
	}

	if _, present := raw[keyParameters]; !present {
		return nil, ErrNoParameters
	}

	spec := &Spec{Program: ProcessProgram(program)}

	var result *multierror.Error

	for _, item := range doc.Parameters {
		name := fmt.Sprint(item.Key)

		values, err := yamlParameterValues(item.Value)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w %q: %w", ErrInvalidParameter, name, err))
			continue
		}

		spec.Parameters = append(spec.Parameters, Parameter{Name: name, Values: values})
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	return spec.checkSize()
}

// yamlSection returns the keys of a parameter section. Nested mappings decode as
// MapSlice with UseOrderedMap, or as plain maps without it.
func yamlSection(v any) (map[string]any, error) {
	switch s := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(s))
		for _, item := range s {
			m[fmt.Sprint(item.Key)] = item.Value
		}

		return m, nil
	case map[string]any:
		return s, nil
	case nil:
		return nil, errors.New("empty section")
	default:
		return nil, fmt.Errorf("section must be a mapping, got %T", v)
	}
}

func yamlParameterValues(v any) ([]string, error) {
	section, err := yamlSection(v)
	if err != nil {
		return nil, err
	}

	if raw, ok := section[keyValues]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("values must be a list, got %T", raw)
		}

		if len(list) == 0 {
			return nil, errors.New("values is empty")
		}

		out := make([]string, 0, len(list))

		for i, item := range list {
			s, err := scalarString(item)
			if err != nil {
				return nil, fmt.Errorf("values[%d]: %w", i, err)
			}

			out = append(out, s)
		}

		return out, nil
	}

	if raw, ok := section[keyValue]; ok && raw != nil {
		s, err := scalarString(raw)
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}

		return []string{s}, nil
	}

	if raw, ok := section[keyMax]; ok && raw != nil {
		return yamlRange(section, raw)
	}

	return nil, errors.New("one of values, value or max is required")
}

func yamlRange(section map[string]any, rawMax any) ([]string, error) {
	hi, err := scalarInt(rawMax)
	if err != nil {
		return nil, fmt.Errorf("max: %w", err)
	}

	lo, step := 0, 1

	if raw, ok := section[keyMin]; ok && raw != nil {
		if lo, err = scalarInt(raw); err != nil {
			return nil, fmt.Errorf("min: %w", err)
		}
	}

	if raw, ok := section[keyStep]; ok && raw != nil {
		if step, err = scalarInt(raw); err != nil {
			return nil, fmt.Errorf("step: %w", err)
		}
	}

	return intRange(lo, hi, step)
}
