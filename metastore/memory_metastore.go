package metastore

import (
	"context"
	"fmt"
	"sync"

	"github.com/danthegoodman1/vcf2parquet/part"
)

// MemoryMetaStore keeps parts in process memory, lost on restart.
type MemoryMetaStore struct {
	mu    sync.RWMutex
	parts map[string]map[string]part.Part
}

func NewMemoryMetaStore() *MemoryMetaStore {
	return &MemoryMetaStore{parts: map[string]map[string]part.Part{}}
}

func (mms *MemoryMetaStore) CreatePart(_ context.Context, p part.Part) error {
	mms.mu.Lock()
	defer mms.mu.Unlock()
	dataset, ok := mms.parts[p.Dataset]
	if !ok {
		dataset = map[string]part.Part{}
		mms.parts[p.Dataset] = dataset
	}
	if _, exists := dataset[p.Name]; exists {
		return fmt.Errorf("%w: %s/%s", ErrPartExists, p.Dataset, p.Name)
	}
	p.Columns = append([]string(nil), p.Columns...)
	dataset[p.Name] = p
	return nil
}

func (mms *MemoryMetaStore) ListParts(_ context.Context, dataset string) ([]part.Part, error) {
	mms.mu.RLock()
	defer mms.mu.RUnlock()
	parts := make([]part.Part, 0, len(mms.parts[dataset]))
	for _, p := range mms.parts[dataset] {
		parts = append(parts, p)
	}
	sortParts(parts)
	return parts, nil
}

func (mms *MemoryMetaStore) Shutdown(context.Context) error {
	return nil
}
