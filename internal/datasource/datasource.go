// Package datasource defines where load input bytes come from. A Source
// opens a fresh byte stream per call; decoders are not restartable, so each
// load opens its own stream.
package datasource

import (
	"context"
	"io"
)

// Source yields a readable byte stream. Implementations must respect ctx
// cancellation at open time; closing the returned reader releases the
// underlying resource.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
