package streaming

import (
	"bufio"
	"bytes"
	"io"

	"nexusgate/pkg/proxy/types"
)

// DefaultMaxEventBytes bounds the buffered size of a single upstream event.
// An event that exceeds it fails the stream rather than growing without
// bound.
const DefaultMaxEventBytes = 1 << 20

// EventReader yields upstream stream records one at a time. Next returns
// io.EOF at the natural end of the stream.
type EventReader interface {
	Next() ([]byte, error)
}

// sseReader parses server-sent events: "data: " lines accumulate into an
// event that a blank line flushes. Comment and event-type lines are
// skipped. Partial lines are buffered across reads.
type sseReader struct {
	scanner       *bufio.Scanner
	pending       [][]byte
	maxEventBytes int
}

// NewSSEReader builds an EventReader over an SSE body. maxEventBytes caps
// both line length and accumulated event size; zero selects the default.
func NewSSEReader(r io.Reader, maxEventBytes int) EventReader {
	if maxEventBytes <= 0 {
		maxEventBytes = DefaultMaxEventBytes
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventBytes)
	return &sseReader{scanner: scanner, maxEventBytes: maxEventBytes}
}

// Next implements EventReader.
func (s *sseReader) Next() ([]byte, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()

		if len(bytes.TrimSpace(line)) == 0 {
			if len(s.pending) == 0 {
				continue
			}
			event := bytes.Join(s.pending, []byte("\n"))
			s.pending = nil
			return event, nil
		}

		if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			data = bytes.TrimPrefix(data, []byte(" "))
			size := len(data)
			for _, part := range s.pending {
				size += len(part) + 1
			}
			if size > s.maxEventBytes {
				s.pending = nil
				return nil, types.NewError(types.KindServerError, "upstream stream event exceeds buffer limit")
			}
			// Copy: the scanner reuses its buffer.
			s.pending = append(s.pending, append([]byte(nil), data...))
		}
		// Non-data fields (event:, id:, comments) are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return nil, types.NewError(types.KindServerError, "upstream stream event exceeds buffer limit")
		}
		return nil, types.WrapError(types.KindTransport, "failed to read upstream stream", err)
	}

	// Flush a trailing event not terminated by a blank line.
	if len(s.pending) > 0 {
		event := bytes.Join(s.pending, []byte("\n"))
		s.pending = nil
		return event, nil
	}
	return nil, io.EOF
}

// lineReader yields newline-delimited JSON records, skipping blank lines.
type lineReader struct {
	scanner *bufio.Scanner
}

// NewLineReader builds an EventReader over a newline-delimited JSON body.
func NewLineReader(r io.Reader, maxEventBytes int) EventReader {
	if maxEventBytes <= 0 {
		maxEventBytes = DefaultMaxEventBytes
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventBytes)
	return &lineReader{scanner: scanner}
}

// Next implements EventReader.
func (l *lineReader) Next() ([]byte, error) {
	for l.scanner.Scan() {
		line := bytes.TrimSpace(l.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return append([]byte(nil), line...), nil
	}

	if err := l.scanner.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return nil, types.NewError(types.KindServerError, "upstream stream record exceeds buffer limit")
		}
		return nil, types.WrapError(types.KindTransport, "failed to read upstream stream", err)
	}
	return nil, io.EOF
}
