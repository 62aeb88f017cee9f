package apiclient

import (
	"bufio"
	"io"
	"strings"
)

// sseFrame is one parsed server-sent event.
type sseFrame struct {
	Type string
	ID   string
	Data string
}

// sseReader splits a text/event-stream body into frames. Frames are
// separated by blank lines; data lines are joined with "\n"; comments and
// unknown fields are skipped.
type sseReader struct {
	r   *bufio.Reader
	cur sseFrame
	err error
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReaderSize(r, 64*1024)}
}

func (s *sseReader) Next() bool {
	if s.err != nil {
		return false
	}
	var (
		frame   sseFrame
		data    []string
		hasData bool
	)
	emit := func() bool {
		frame.Data = strings.Join(data, "\n")
		s.cur = frame
		return true
	}
	for {
		line, err := s.r.ReadString('\n')
		if err != nil && line == "" {
			s.err = err
			if err == io.EOF && hasData {
				return emit()
			}
			return false
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData {
				return emit()
			}
			frame = sseFrame{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			frame.Type = value
		case "id":
			frame.ID = value
		}
	}
}

func (s *sseReader) Frame() sseFrame {
	return s.cur
}

func (s *sseReader) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
