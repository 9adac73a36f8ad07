// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package gridspec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

const defaultHCLFilename = "gridspec.hcl"

type hclDoc struct {
	Program    *string        `hcl:"program,optional"`
	Parameters []hclParameter `hcl:"parameter,block"`
}

type hclParameter struct {
	Name   string    `hcl:"name,label"`
	Values cty.Value `hcl:"values,optional"`
	Value  cty.Value `hcl:"value,optional"`
	Min    *int      `hcl:"min,optional"`
	Max    *int      `hcl:"max,optional"`
	Step   *int      `hcl:"step,optional"`
}

// ParseHCL parses an HCL grid spec. Parameters are blocks, in declared order:
//
//	program = "python train.py"
//
//	parameter "lr" {
//	  values = [0.1, 0.01]
//	}
//
//	parameter "seed" {
//	  min = 0
//	  max = 3
//	}
//
// filename is used in diagnostics.
func ParseHCL(data []byte, filename string) (*Spec, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".hcl") {
		filename = defaultHCLFilename
	}

	var doc hclDoc
	if err := hclsimple.Decode(filename, data, nil, &doc); err != nil {
		return nil, fmt.Errorf("grid spec error: %w", err)
	}

	if doc.Program == nil || ProcessProgram(*doc.Program) == "" {
		return nil, ErrNoProgram
	}

	if len(doc.Parameters) == 0 {
		return nil, ErrNoParameters
	}

	spec := &Spec{Program: ProcessProgram(*doc.Program)}

	var result *multierror.Error

	seen := make(map[string]struct{}, len(doc.Parameters))

	for _, p := range doc.Parameters {
		if _, dup := seen[p.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("%w %q: declared more than once", ErrInvalidParameter, p.Name))
			continue
		}

		seen[p.Name] = struct{}{}

		values, err := p.values()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w %q: %w", ErrInvalidParameter, p.Name, err))
			continue
		}

		spec.Parameters = append(spec.Parameters, Parameter{Name: p.Name, Values: values})
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	return spec.checkSize()
}

func (p hclParameter) values() ([]string, error) {
	if !p.Values.IsNull() {
		t := p.Values.Type()
		if !t.IsListType() && !t.IsTupleType() && !t.IsSetType() {
			return nil, fmt.Errorf("values must be a list, got %s", t.FriendlyName())
		}

		if p.Values.LengthInt() == 0 {
			return nil, errors.New("values is empty")
		}

		out := make([]string, 0, p.Values.LengthInt())

		for i, v := range p.Values.AsValueSlice() {
			s, err := ctyString(v)
			if err != nil {
				return nil, fmt.Errorf("values[%d]: %w", i, err)
			}

			out = append(out, s)
		}

		return out, nil
	}

	if !p.Value.IsNull() {
		s, err := ctyString(p.Value)
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}

		return []string{s}, nil
	}

	if p.Max != nil {
		lo, step := 0, 1
		if p.Min != nil {
			lo = *p.Min
		}

		if p.Step != nil {
			step = *p.Step
		}

		return intRange(lo, *p.Max, step)
	}

	return nil, errors.New("one of values, value or max is required")
}

// ctyString renders a primitive HCL value. Whole numbers have no decimal point.
func ctyString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", errors.New("null value")
	}

	if !v.IsKnown() || !v.Type().IsPrimitiveType() {
		return "", fmt.Errorf("unsupported value of type %s", v.Type().FriendlyName())
	}

	if v.Type() == cty.Number {
		bf := v.AsBigFloat()
		if bf.IsInt() {
			return bf.Text('f', 0), nil
		}

		f, _ := bf.Float64()

		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}

	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("convert to string: %w", err)
	}

	return s.AsString(), nil
}
