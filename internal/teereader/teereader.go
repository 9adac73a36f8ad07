// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package teereader

import (
	"bytes"
	"io"
	"sync"
)

// MaxLineLength bounds the length of a reported line. Longer lines keep their tail.
const MaxLineLength = 64 * 1024

// LineFunc is called once for every complete line, without its line ending.
type LineFunc func(line string)

// LastLineTeeReader wraps an io.Reader and tracks the last complete line.
// A line ends at "\n", "\r\n" or a lone "\r", so progress bars that redraw with "\r"
// report each redraw as a line.
// At most 2*MaxLineLength bytes of the current line are buffered.
// It is safe for concurrent use.
type LastLineTeeReader struct {
	reader   io.Reader
	onLine   LineFunc
	lastLine string
	lines    int
	partial  []byte
	afterCR  bool
	mu       sync.RWMutex
}

// NewLastLineTeeReader creates a new LastLineTeeReader that wraps the given reader.
// onLine may be nil.
func NewLastLineTeeReader(r io.Reader, onLine LineFunc) *LastLineTeeReader {
	return &LastLineTeeReader{
		reader: r,
		onLine: onLine,
	}
}

// Read implements io.Reader.
func (lt *LastLineTeeReader) Read(p []byte) (n int, err error) {
	n, err = lt.reader.Read(p)
	if n > 0 {
		for _, line := range lt.processNewData(p[:n]) {
			if lt.onLine != nil {
				lt.onLine(line)
			}
		}
	}

	if err == io.EOF {
		lt.flushPartial()
	}

	return n, err //nolint:wrapcheck
}

// processNewData returns the lines completed by data. Only data is scanned.
func (lt *LastLineTeeReader) processNewData(data []byte) []string {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	var complete []string

	for len(data) > 0 {
		if lt.afterCR && data[0] == '\n' {
			data = data[1:]
			lt.afterCR = false

			continue
		}

		lt.afterCR = false

		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			lt.appendPartial(data)
			break
		}

		lt.appendPartial(data[:i])
		complete = append(complete, lt.takeLine())
		lt.afterCR = data[i] == '\r'
		data = data[i+1:]
	}

	if len(complete) > 0 {
		lt.lastLine = complete[len(complete)-1]
		lt.lines += len(complete)
	}

	return complete
}

// appendPartial adds b to the current line, dropping its head once it outgrows the cap.
func (lt *LastLineTeeReader) appendPartial(b []byte) {
	if len(b) >= MaxLineLength {
		lt.partial = append(lt.partial[:0], b[len(b)-MaxLineLength:]...)
		return
	}

	lt.partial = append(lt.partial, b...)

	if len(lt.partial) > 2*MaxLineLength {
		lt.partial = append(lt.partial[:0], lt.partial[len(lt.partial)-MaxLineLength:]...)
	}
}

// takeLine returns the current line and starts a new one.
func (lt *LastLineTeeReader) takeLine() string {
	line := lt.partial
	if len(line) > MaxLineLength {
		line = line[len(line)-MaxLineLength:]
	}

	s := string(line)
	lt.partial = lt.partial[:0]

	return s
}

// flushPartial treats an unterminated final line as complete once the stream ends.
func (lt *LastLineTeeReader) flushPartial() {
	lt.mu.Lock()

	if len(lt.partial) == 0 {
		lt.mu.Unlock()
		return
	}

	line := lt.takeLine()
	lt.lastLine = line
	lt.lines++
	lt.mu.Unlock()

	if lt.onLine != nil {
		lt.onLine(line)
	}
}

// GetLastLine returns the last complete line that was read.
// If maxLength > 0, it truncates the line to that length and appends "...".
func (lt *LastLineTeeReader) GetLastLine(maxLength int) string {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	result := lt.lastLine
	if maxLength > 3 && len(result) > maxLength {
		result = result[:maxLength-3] + "..."
	}

	return result
}

// Lines is the number of complete lines seen so far.
func (lt *LastLineTeeReader) Lines() int {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	return lt.lines
}
