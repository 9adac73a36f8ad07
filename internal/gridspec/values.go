// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package gridspec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// intRange lists the integers from min towards max (exclusive) in steps of step.
// A range longer than MaxCommands is rejected before anything is allocated.
func intRange(lo, hi, step int) ([]string, error) {
	if step == 0 {
		return nil, fmt.Errorf("step must not be zero")
	}

	n := rangeLen(lo, hi, step)
	if n > MaxCommands {
		return nil, fmt.Errorf("range min=%d max=%d step=%d has more than %d values", lo, hi, step, MaxCommands)
	}

	out := make([]string, 0, n)

	for i := lo; len(out) < n; i += step {
		out = append(out, strconv.Itoa(i))
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("range min=%d max=%d step=%d is empty", lo, hi, step)
	}

	return out, nil
}

// rangeLen counts the values of intRange without overflowing, saturating at MaxCommands+1.
func rangeLen(lo, hi, step int) int {
	var span, stride uint64

	switch {
	case step > 0 && lo < hi:
		span, stride = uint64(hi)-uint64(lo), uint64(step)
	case step < 0 && lo > hi:
		span, stride = uint64(lo)-uint64(hi), -uint64(step)
	default:
		return 0
	}

	n := (span-1)/stride + 1
	if n > MaxCommands {
		return MaxCommands + 1
	}

	return int(n)
}

// formatFloat renders f the shortest way that reads back exactly, keeping a
// trailing ".0" on whole numbers so that 1.0 does not turn into 1.
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}

	return s
}

// scalarString renders a decoded YAML scalar.
func scalarString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return formatFloat(x), nil
	case nil:
		return "", fmt.Errorf("null value")
	default:
		return "", fmt.Errorf("unsupported value %v of type %T", v, v)
	}
}

// scalarInt reads a decoded YAML scalar as an int.
func scalarInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		if x > math.MaxInt {
			return 0, fmt.Errorf("%d is out of range", x)
		}

		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}

		return int(x), nil
	default:
		return 0, fmt.Errorf("%v is not an integer", v)
	}
}
