package formdata

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

type state uint8

const (
	stateAwaitingPart state = iota
	stateReadingHeaders
	stateReadingBody
	stateDone
)

var crlf = []byte("\r\n")

// emitFunc receives a finished part. value holds the body with the
// trailing CRLF removed; it is empty when truncated is set, size is the
// full body length either way.
type emitFunc func(ctx context.Context, p *part, value []byte, size int64, truncated bool) error

// scanner walks a multipart body line by line. It never holds more than one
// part in memory, and for binary parts stops buffering once limit is passed.
type scanner struct {
	r       *bufio.Reader
	delim   []byte // --boundary CRLF
	closing []byte // --boundary-- CRLF
	limit   int64  // binary buffering bound, 0 for none
	emit    emitFunc
	discard func(reason string)

	state   state
	midLine bool

	header  bytes.Buffer
	mime    string
	hasMime bool

	current  *part
	value    bytes.Buffer
	size     int64
	tail     [2]byte
	overflow bool
}

func newScanner(r *bufio.Reader, boundary string, maxSize int64, emit emitFunc) *scanner {
	s := &scanner{
		r:       r,
		delim:   []byte("--" + boundary + "\r\n"),
		closing: []byte("--" + boundary + "--\r\n"),
		emit:    emit,
		discard: func(string) {},
	}
	if maxSize > 0 {
		s.limit = maxSize + int64(len(crlf))
	}
	return s
}

// run consumes the body until the closing boundary or end of stream.
// A stream that ends early still flushes the pending part.
// It reports whether the closing boundary was seen.
func (s *scanner) run(ctx context.Context) (bool, error) {
	for s.state != stateDone {
		line, err := s.r.ReadSlice('\n')
		full := err == nil
		if errors.Is(err, bufio.ErrBufferFull) {
			err = nil
		}
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return false, fmt.Errorf("%w: %v", ErrReadBody, err)
		}

		if len(line) > 0 {
			whole := !s.midLine && (full || eof)
			s.midLine = !full && !eof
			if err := s.consume(ctx, line, whole, eof); err != nil {
				return false, err
			}
		}
		if eof && s.state != stateDone {
			return false, s.flush(ctx)
		}
	}
	return true, nil
}

// consume handles one line, or one fragment of a line longer than the
// read buffer. Only whole lines are compared against boundaries.
func (s *scanner) consume(ctx context.Context, line []byte, whole, eof bool) error {
	if whole && s.isClosing(line, eof) {
		s.state = stateDone
		return s.flush(ctx)
	}

	switch s.state {
	case stateAwaitingPart, stateReadingBody:
		if whole && bytes.Equal(line, s.delim) {
			if err := s.flush(ctx); err != nil {
				return err
			}
			s.startPart()
			return nil
		}
		if s.state == stateReadingBody {
			s.appendValue(line)
		}

	case stateReadingHeaders:
		if whole && bytes.Equal(line, crlf) {
			s.resolvePart()
			return nil
		}
		if whole {
			if mime, ok := mimeFromLine(line); ok {
				s.mime, s.hasMime = mime, true
				return nil
			}
		}
		s.header.Write(line)
	}
	return nil
}

// isClosing accepts the closing boundary without its CRLF as the very
// last line of the stream.
func (s *scanner) isClosing(line []byte, eof bool) bool {
	if bytes.Equal(line, s.closing) {
		return true
	}
	return eof && bytes.Equal(line, s.closing[:len(s.closing)-len(crlf)])
}

func (s *scanner) startPart() {
	s.state = stateReadingHeaders
	s.header.Reset()
	s.mime, s.hasMime = "", false
}

func (s *scanner) resolvePart() {
	s.state = stateReadingBody
	s.value.Reset()
	s.size = 0
	s.tail = [2]byte{}
	s.overflow = false
	s.current = nil

	p, ok := parseHeader(s.header.String(), s.mime, s.hasMime)
	if !ok {
		s.discard("missing or malformed field name")
		return
	}
	s.current = &p
}

func (s *scanner) appendValue(line []byte) {
	s.size += int64(len(line))
	if n := len(line); n >= 2 {
		s.tail = [2]byte{line[n-2], line[n-1]}
	} else {
		s.tail = [2]byte{s.tail[1], line[0]}
	}

	if s.current == nil || s.overflow {
		return
	}
	if s.current.kind == partBinary && s.limit > 0 && int64(s.value.Len()+len(line)) > s.limit {
		s.overflow = true
		s.value.Reset()
		return
	}
	s.value.Write(line)
}

// flush hands the pending part to emit and clears it.
func (s *scanner) flush(ctx context.Context) error {
	p := s.current
	if p == nil {
		return nil
	}
	s.current = nil

	value, size := s.value.Bytes(), s.size
	if size >= 2 && s.tail == [2]byte{'\r', '\n'} {
		size -= 2
		if !s.overflow {
			value = value[:len(value)-2]
		}
	}
	if s.overflow {
		value = nil
	}
	return s.emit(ctx, p, value, size, s.overflow)
}
