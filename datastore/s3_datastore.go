package datastore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/danthegoodman1/vcf2parquet/s3"
	"github.com/danthegoodman1/vcf2parquet/utils"
)

type (
	// ObjectStore is the part of the s3 client the data store needs.
	ObjectStore interface {
		Upload(ctx context.Context, key string, body io.Reader, contentType *string) error
		Download(ctx context.Context, key string) ([]byte, error)
	}

	// S3DataStore stages every file in a local temp file and uploads it on Close, since
	// parquet files are written in one pass of unknown length.
	S3DataStore struct {
		store   ObjectStore
		prefix  string
		tempDir string
	}

	stagedFile struct {
		*os.File
		ctx   context.Context
		store ObjectStore
		key   string
	}
)

var parquetContentType = utils.Ptr("application/vnd.apache.parquet")

func NewS3DataStore(store ObjectStore, prefix, tempDir string) *S3DataStore {
	return &S3DataStore{
		store:   store,
		prefix:  prefix,
		tempDir: tempDir,
	}
}

func (sds *S3DataStore) key(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return path.Join(sds.prefix, clean), nil
}

func (sds *S3DataStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	key, err := sds.key(name)
	if err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(sds.tempDir, utils.GenRandomID("stage_")+"_*.parquet")
	if err != nil {
		return nil, fmt.Errorf("error in os.CreateTemp: %w", err)
	}
	return &stagedFile{File: f, ctx: ctx, store: sds.store, key: key}, nil
}

func (sds *S3DataStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := sds.key(name)
	if err != nil {
		return nil, err
	}
	b, err := sds.store.Download(ctx, key)
	if errors.Is(err, s3.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("error in Download: %w", err)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (sds *S3DataStore) Shutdown(context.Context) error {
	return nil
}

// Close uploads the staged file and removes it, whether or not the upload worked.
func (sf *stagedFile) Close() error {
	defer func() {
		if err := os.Remove(sf.Name()); err != nil {
			logger.Warn().Err(err).Str("file", sf.Name()).Msg("failed to remove staged file")
		}
	}()

	if _, err := sf.Seek(0, io.SeekStart); err != nil {
		sf.File.Close()
		return fmt.Errorf("error in Seek: %w", err)
	}
	err := sf.store.Upload(sf.ctx, sf.key, sf.File, parquetContentType)
	if cerr := sf.File.Close(); err == nil && cerr != nil {
		return fmt.Errorf("error in Close: %w", cerr)
	}
	if err != nil {
		return fmt.Errorf("error in Upload: %w", err)
	}
	logger.Debug().Str("key", sf.key).Msg("uploaded staged file")
	return nil
}
