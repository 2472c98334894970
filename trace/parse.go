package trace

import (
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/go-alloc/segheap/bufiox"
)

// ErrMalformedLine is wrapped with the offending line's content and
// position whenever Parse encounters a line it cannot decode.
var ErrMalformedLine = errors.New("trace: malformed line")

// Parse reads every operation out of r and returns them in file order. It
// reads through a bufiox.Reader a byte at a time rather than allocating a
// bufio.Scanner, so the read buffer comes from bufiox's pooled zero-copy
// buffers and is returned to the pool when Parse finishes.
func Parse(r io.Reader) ([]Op, error) {
	br := bufiox.NewDefaultReader(r)
	defer br.Release(nil)

	var ops []Op
	var line []byte
	lineNo := 0

	flush := func() error {
		lineNo++
		if len(line) == 0 {
			return nil
		}
		op, err := parseLine(line)
		if err != nil {
			return errors.Wrapf(err, "trace: line %d: %q", lineNo, string(line))
		}
		ops = append(ops, op)
		line = line[:0]
		return nil
	}

	for {
		b, err := br.Next(1)
		if err != nil {
			if err == io.EOF {
				if ferr := flush(); ferr != nil {
					return nil, ferr
				}
				return ops, nil
			}
			return nil, errors.Wrap(err, "trace: read failed")
		}
		if b[0] == '\n' {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if b[0] != '\r' {
			line = append(line, b[0])
		}
	}
}

func parseLine(line []byte) (Op, error) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return Op{}, ErrMalformedLine
	}

	switch fields[0] {
	case "a":
		if len(fields) != 3 {
			return Op{}, ErrMalformedLine
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return Op{}, errors.Wrap(ErrMalformedLine, err.Error())
		}
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Op{}, errors.Wrap(ErrMalformedLine, err.Error())
		}
		return Op{Kind: Alloc, ID: id, Size: uintptr(size)}, nil

	case "f":
		if len(fields) != 2 {
			return Op{}, ErrMalformedLine
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return Op{}, errors.Wrap(ErrMalformedLine, err.Error())
		}
		return Op{Kind: Free, ID: id}, nil

	case "r":
		if len(fields) != 3 {
			return Op{}, ErrMalformedLine
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return Op{}, errors.Wrap(ErrMalformedLine, err.Error())
		}
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Op{}, errors.Wrap(ErrMalformedLine, err.Error())
		}
		return Op{Kind: Realloc, ID: id, Size: uintptr(size)}, nil

	default:
		return Op{}, ErrMalformedLine
	}
}

func splitFields(line []byte) []string {
	var fields []string
	start := -1
	for i, c := range line {
		if c == ' ' || c == '\t' {
			if start >= 0 {
				fields = append(fields, string(line[start:i]))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, string(line[start:]))
	}
	return fields
}
