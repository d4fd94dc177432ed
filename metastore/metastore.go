package metastore

import (
	"context"
	"errors"
	"sort"

	"github.com/danthegoodman1/vcf2parquet/gologger"
	"github.com/danthegoodman1/vcf2parquet/part"
)

var (
	logger = gologger.NewLogger()

	ErrPartExists = errors.New("part already exists")
)

type (
	// MetaStore catalogs the parts written for each dataset.
	MetaStore interface {
		// CreatePart records a new part, ErrPartExists when the dataset already has a part
		// with that name
		CreatePart(ctx context.Context, p part.Part) error
		// ListParts lists the parts of a dataset in creation order
		ListParts(ctx context.Context, dataset string) ([]part.Part, error)

		Shutdown(ctx context.Context) error
	}

	// NopMetaStore is used when no catalog is configured.
	NopMetaStore struct{}
)

func (NopMetaStore) CreatePart(context.Context, part.Part) error {
	return nil
}

func (NopMetaStore) ListParts(context.Context, string) ([]part.Part, error) {
	return []part.Part{}, nil
}

func (NopMetaStore) Shutdown(context.Context) error {
	return nil
}

func sortParts(parts []part.Part) {
	sort.Slice(parts, func(i, j int) bool {
		if !parts[i].CreatedAt.Equal(parts[j].CreatedAt) {
			return parts[i].CreatedAt.Before(parts[j].CreatedAt)
		}
		return parts[i].ID < parts[j].ID
	})
}
