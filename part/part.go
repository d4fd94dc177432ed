package part

import (
	"time"

	"github.com/danthegoodman1/vcf2parquet/utils"
)

type (
	// Part is one parquet file written for a dataset.
	Part struct {
		ID      string
		Dataset string
		// Name is the file name within the data store
		Name      string
		RowCount  int64
		RowGroups int
		Bytes     int64
		Columns   []string
		CreatedAt time.Time
	}
)

// New returns a part with a fresh k-sorted ID, so parts sort by creation time.
func New(dataset, name string) Part {
	return Part{
		ID:        utils.GenKSortedID("prt_"),
		Dataset:   dataset,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}
