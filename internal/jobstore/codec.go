// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const indent = "  "

var (
	errNotObject    = errors.New("state is not a JSON object")
	errTrailingData = errors.New("unexpected data after state object")
)

// encode writes the jobs as one JSON object keyed by identity, in the given order.
// encoding/json sorts map keys, so the object is assembled by hand to keep runfile order.
func encode(order []string, jobs map[string]*Job) ([]byte, error) {
	if len(order) == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer

	buf.WriteString("{\n")

	for i, id := range order {
		key, err := json.Marshal(id)
		if err != nil {
			return nil, fmt.Errorf("marshal identity %q: %w", id, err)
		}

		val, err := json.MarshalIndent(jobs[id], indent, indent)
		if err != nil {
			return nil, fmt.Errorf("marshal job %q: %w", id, err)
		}

		buf.WriteString(indent)
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)

		if i < len(order)-1 {
			buf.WriteByte(',')
		}

		buf.WriteByte('\n')
	}

	buf.WriteString("}\n")

	return buf.Bytes(), nil
}

// decode parses the state object, keeping key order. Any structural problem is an error:
// the caller turns it into ErrCorruptStore rather than guessing at prior progress.
func decode(data []byte) ([]string, map[string]*Job, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errNotObject
	}

	var order []string

	jobs := make(map[string]*Job)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}

		id, ok := tok.(string)
		if !ok || id == "" {
			return nil, nil, fmt.Errorf("invalid identity key %v", tok)
		}

		if _, dup := jobs[id]; dup {
			return nil, nil, fmt.Errorf("duplicate identity %q", id)
		}

		job := &Job{}
		if err := dec.Decode(job); err != nil {
			return nil, nil, fmt.Errorf("job %q: %w", id, err)
		}

		if err := validate(job); err != nil {
			return nil, nil, fmt.Errorf("job %q: %w", id, err)
		}

		job.Identity = id
		jobs[id] = job
		order = append(order, id)
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, errTrailingData
	}

	return order, jobs, nil
}

func validate(job *Job) error {
	if job.Command == "" {
		return errors.New("missing command")
	}

	if !job.Status.Valid() {
		return fmt.Errorf("unknown status %q", job.Status)
	}

	return nil
}
