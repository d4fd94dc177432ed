package datastore

import (
	"context"
	"errors"
	"io"

	"github.com/danthegoodman1/vcf2parquet/gologger"
)

var (
	logger = gologger.NewLogger()

	ErrNotFound = errors.New("file not found")
	ErrBadName  = errors.New("bad file name")
)

type (
	// DataStore is where converted parquet files go. Names are slash separated paths relative
	// to the store root.
	DataStore interface {
		// Create returns a writer for a new file. The file is only complete once Close returns nil.
		Create(ctx context.Context, name string) (io.WriteCloser, error)
		// Open returns a reader for a complete file
		Open(ctx context.Context, name string) (io.ReadCloser, error)

		Shutdown(ctx context.Context) error
	}
)
