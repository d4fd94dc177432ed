package metastore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/danthegoodman1/vcf2parquet/crdb"
	"github.com/danthegoodman1/vcf2parquet/migrations"
	"github.com/danthegoodman1/vcf2parquet/part"
	"github.com/danthegoodman1/vcf2parquet/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isRedisAvailable(addr string) bool {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return client.Ping(ctx).Err() == nil
}

// testCatalog runs the behaviour every MetaStore must share
func testCatalog(t *testing.T, ms MetaStore) {
	ctx := context.Background()
	dataset := utils.GenRandomShortID()

	first := part.New(dataset, dataset+"/a.parquet")
	first.RowCount = 10
	first.RowGroups = 1
	first.Bytes = 1024
	first.Columns = []string{"chromosome", "position"}
	require.NoError(t, ms.CreatePart(ctx, first))

	second := part.New(dataset, dataset+"/b.parquet")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.Columns = []string{"chromosome"}
	require.NoError(t, ms.CreatePart(ctx, second))

	dup := part.New(dataset, dataset+"/a.parquet")
	dup.Columns = []string{}
	assert.ErrorIs(t, ms.CreatePart(ctx, dup), ErrPartExists)

	parts, err := ms.ListParts(ctx, dataset)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, first.ID, parts[0].ID)
	assert.Equal(t, first.Name, parts[0].Name)
	assert.Equal(t, int64(10), parts[0].RowCount)
	assert.Equal(t, []string{"chromosome", "position"}, parts[0].Columns)
	assert.Equal(t, second.ID, parts[1].ID)

	empty, err := ms.ListParts(ctx, "missing_"+dataset)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNopMetaStore(t *testing.T) {
	var ms MetaStore = NopMetaStore{}
	require.NoError(t, ms.CreatePart(context.Background(), part.New("d", "d/a.parquet")))
	parts, err := ms.ListParts(context.Background(), "d")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestRedisMetaStore(t *testing.T) {
	addr := utils.GetEnvOrDefault("REDIS_ADDR", "localhost:6379")
	if !isRedisAvailable(addr) {
		t.Skip("Redis not available, skipping test")
	}
	ms, err := NewRedisMetaStore(context.Background(), RedisConfig{Addr: addr, PingTest: true})
	require.NoError(t, err)
	defer ms.Shutdown(context.Background())
	testCatalog(t, ms)
}

func TestCRDBMetaStore(t *testing.T) {
	dsn := os.Getenv("CRDB_DSN")
	if dsn == "" {
		t.Skip("CRDB_DSN not set, skipping test")
	}
	_, err := migrations.RunMigrations(dsn)
	require.NoError(t, err)
	require.NoError(t, migrations.CheckMigrations(dsn))

	pool, err := crdb.ConnectToDB(context.Background(), dsn)
	require.NoError(t, err)
	ms := NewCRDBMetaStore(pool, 10*time.Second)
	defer ms.Shutdown(context.Background())
	testCatalog(t, ms)
}

func TestSortParts(t *testing.T) {
	now := time.Now()
	parts := []part.Part{
		{ID: "prt_a", CreatedAt: now.Add(time.Second)},
		{ID: "prt_c", CreatedAt: now},
		{ID: "prt_b", CreatedAt: now},
	}
	sortParts(parts)
	assert.Equal(t, []string{"prt_b", "prt_c", "prt_a"}, []string{parts[0].ID, parts[1].ID, parts[2].ID})
}

func TestMemoryMetaStore(t *testing.T) {
	testCatalog(t, NewMemoryMetaStore())
}
