//go:build !opus

package audioconv

import (
	"errors"
	"io"
)

var errNoOpus = errors.New("opus support not built in (build with -tags opus)")

func decodeOpus(io.ReadSeeker) ([]float32, int, error) {
	return nil, 0, errNoOpus
}
