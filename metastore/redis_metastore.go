package metastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danthegoodman1/vcf2parquet/part"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type (
	RedisMetaStore struct {
		client *redis.Client
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		// PingTest checks the connection on creation
		PingTest bool
	}
)

func NewRedisMetaStore(ctx context.Context, cfg RedisConfig) (*RedisMetaStore, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("connecting to redis metastore")
	rms := &RedisMetaStore{
		client: redis.NewClient(&redis.Options{
			Addr:        cfg.Addr,
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: time.Second * 3,
		}),
	}

	// Ping test first to ensure valid connection
	if cfg.PingTest {
		logger.Debug().Msg("running redis ping test")
		s := time.Now()
		_, err := rms.client.Ping(ctx).Result()
		if err != nil {
			rms.client.Close()
			return nil, fmt.Errorf("error pinging redis: %w", err)
		}
		logger.Debug().Msgf("redis ping test successful in %s", time.Since(s))
	}

	return rms, nil
}

// PartsKey is the hash holding the parts of a dataset, keyed by part name.
func (rms *RedisMetaStore) PartsKey(dataset string) string {
	return "d_" + dataset + "_parts"
}

func (rms *RedisMetaStore) CreatePart(ctx context.Context, p part.Part) error {
	partJSON, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("error json.Marshal(part): %w", err)
	}

	created, err := rms.client.HSetNX(ctx, rms.PartsKey(p.Dataset), p.Name, string(partJSON)).Result()
	if err != nil {
		return fmt.Errorf("error in redis HSETNX: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: %s/%s", ErrPartExists, p.Dataset, p.Name)
	}
	return nil
}

func (rms *RedisMetaStore) ListParts(ctx context.Context, dataset string) ([]part.Part, error) {
	logger := zerolog.Ctx(ctx)

	var cursorPos uint64 = 0
	parts := make([]part.Part, 0)

	// Loop until we have all the results
	for {
		logger.Debug().Msgf("running redis HSCAN with cursor %d", cursorPos)
		rawParts, newCursor, err := rms.client.HScan(ctx, rms.PartsKey(dataset), cursorPos, "", 0).Result()
		if err != nil {
			return nil, fmt.Errorf("error in redis HSCAN: %w", err)
		}

		// HSCAN returns field, value pairs
		for i := 0; i+1 < len(rawParts); i += 2 {
			p := part.Part{}
			err = json.Unmarshal([]byte(rawParts[i+1]), &p)
			if err != nil {
				return nil, fmt.Errorf("error unmarshalling part '%s' under dataset '%s': %w", rawParts[i], dataset, err)
			}
			parts = append(parts, p)
		}

		if newCursor == 0 {
			break
		}
		cursorPos = newCursor
	}

	sortParts(parts)
	return parts, nil
}

func (rms *RedisMetaStore) Shutdown(_ context.Context) error {
	err := rms.client.Close()
	if err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
