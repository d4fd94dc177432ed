package vcf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const DefaultReadBuffer = 8192

type (
	// Reader reads a plain or gzip/BGZF compressed VCF stream.
	Reader struct {
		r      *bufio.Reader
		closer io.Closer
		header *Header
		line   int
		done   bool
	}

	Option func(*readerOptions)

	readerOptions struct {
		bufferSize int
	}
)

var gzipMagic = []byte{0x1f, 0x8b}

// WithReadBuffer sets the size of the read buffer in bytes.
func WithReadBuffer(size int) Option {
	return func(o *readerOptions) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// NewReader sniffs the stream for gzip compression and reads the header.
func NewReader(r io.Reader, opts ...Option) (*Reader, error) {
	o := readerOptions{bufferSize: DefaultReadBuffer}
	for _, opt := range opts {
		opt(&o)
	}

	br := bufio.NewReaderSize(r, o.bufferSize)
	rd := &Reader{r: br}

	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error in Peek: %w", err)
	}
	if bytes.Equal(magic, gzipMagic) {
		// BGZF is a series of gzip members, which the multistream reader handles
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("error in gzip.NewReader: %w", err)
		}
		rd.r = bufio.NewReaderSize(gz, o.bufferSize)
		rd.closer = gz
	}

	if err := rd.readHeader(); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *Reader) Header() *Header {
	return rd.header
}

// Next returns the next record, or io.EOF once the stream is exhausted.
func (rd *Reader) Next() (*Record, error) {
	for {
		if rd.done {
			return nil, io.EOF
		}
		line, err := rd.readLine()
		if errors.Is(err, io.EOF) {
			rd.done = true
			if line == "" {
				return nil, io.EOF
			}
		} else if err != nil {
			return nil, err
		}
		if line == "" {
			continue
		}
		rec, err := ParseRecord(line, rd.header)
		if err != nil {
			return nil, &ParseError{Line: rd.line, Err: err}
		}
		return rec, nil
	}
}

func (rd *Reader) Close() error {
	if rd.closer != nil {
		return rd.closer.Close()
	}
	return nil
}

func (rd *Reader) readHeader() error {
	h := &Header{}
	for {
		line, err := rd.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		switch {
		case strings.HasPrefix(line, "##"):
			if perr := h.parseMetaLine(line); perr != nil {
				return &ParseError{Line: rd.line, Err: perr}
			}
		case strings.HasPrefix(line, "#"):
			if perr := h.parseColumnLine(line); perr != nil {
				return &ParseError{Line: rd.line, Err: perr}
			}
			rd.header = h
			return nil
		default:
			return &ParseError{Line: rd.line, Err: ErrMissingColumnHeader}
		}
		if errors.Is(err, io.EOF) {
			return &ParseError{Line: rd.line, Err: ErrMissingColumnHeader}
		}
	}
}

func (rd *Reader) readLine() (string, error) {
	line, err := rd.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error in ReadString: %w", err)
	}
	rd.line++
	return strings.TrimRight(line, "\r\n"), err
}
