package trace

import (
	"strconv"

	"github.com/go-alloc/segheap/bufiox"
)

// Write serializes ops back into the line-oriented format Parse reads,
// through a bufiox.Writer so repeated dumps (e.g. of a Runner's History)
// build their output with the same deferred-copy buffer growth the rest
// of the package uses instead of repeated byte-slice concatenation.
func Write(ops []Op) ([]byte, error) {
	var out []byte
	w := bufiox.NewBytesWriter(&out)

	for _, op := range ops {
		if _, err := w.WriteBinary(formatLine(op)); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func formatLine(op Op) []byte {
	switch op.Kind {
	case Alloc:
		return []byte("a " + strconv.Itoa(op.ID) + " " + strconv.FormatUint(uint64(op.Size), 10) + "\n")
	case Free:
		return []byte("f " + strconv.Itoa(op.ID) + "\n")
	case Realloc:
		return []byte("r " + strconv.Itoa(op.ID) + " " + strconv.FormatUint(uint64(op.Size), 10) + "\n")
	default:
		return nil
	}
}
