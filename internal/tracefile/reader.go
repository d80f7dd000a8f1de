package tracefile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// DefaultBufferSize is the chunk size the Reader refills with.
const DefaultBufferSize = 64 * 1024

// gzipMagic is the two-byte gzip member header.
var gzipMagic = []byte{0x1f, 0x8b}

// Option configures a Reader.
type Option func(*Reader)

// WithBufferSize overrides the chunk size. Values below 16 are raised to 16.
func WithBufferSize(n int) Option {
	return func(r *Reader) {
		if n < 16 {
			n = 16
		}
		r.buf = make([]byte, n)
	}
}

// Reader decodes trace records from a byte stream.
//
// Not safe for concurrent use. All blocking happens in the underlying
// io.Reader; there is no timeout.
type Reader struct {
	src    io.Reader
	closer io.Closer

	buf []byte
	pos int
	end int
	eof bool

	offset  int64 // bytes consumed by decoding
	record  int64 // 1-based index of the record being decoded
	scratch []byte
}

// NewReader returns a Reader over an uncompressed trace stream.
func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{src: src}
	for _, opt := range opts {
		opt(r)
	}
	if r.buf == nil {
		r.buf = make([]byte, DefaultBufferSize)
	}
	return r
}

// Open returns a Reader over src, transparently decompressing it when it
// starts with the gzip magic number. Close releases the decompressor; it
// never closes src.
func Open(src io.Reader, opts ...Option) (*Reader, error) {
	br := bufio.NewReader(src)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("open trace: %w", err)
	}

	if bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open trace: gzip header: %w", err)
		}
		r := NewReader(zr, opts...)
		r.closer = zr
		return r, nil
	}

	return NewReader(br, opts...), nil
}

// Close releases the gzip decompressor, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Offset returns the number of decompressed bytes decoded so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Records returns the number of records started so far.
func (r *Reader) Records() int64 {
	return r.record
}

// fill makes at least one unread byte available. It returns false only
// at end of stream.
func (r *Reader) fill() (bool, error) {
	for r.pos >= r.end {
		if r.eof {
			return false, nil
		}
		n, err := r.src.Read(r.buf)
		r.pos, r.end = 0, n
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return false, fmt.Errorf("read trace at offset %d: %w", r.offset, err)
			}
			r.eof = true
		}
	}
	return true, nil
}

func (r *Reader) truncated(field string) error {
	return &TruncatedError{Offset: r.offset, Record: r.record, Field: field}
}

// NextTag reads the tag byte that starts a record. It returns io.EOF when
// the stream ends cleanly between records and an UnknownTagError for a
// byte outside the protocol.
func (r *Reader) NextTag() (Tag, error) {
	ok, err := r.fill()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, io.EOF
	}

	b := r.buf[r.pos]
	r.record++
	if !Tag(b).Valid() {
		return 0, &UnknownTagError{Tag: b, Offset: r.offset, Record: r.record}
	}
	r.pos++
	r.offset++
	return Tag(b), nil
}

// NextInt32 reads a little-endian int32. The value may straddle a chunk
// boundary.
func (r *Reader) NextInt32() (int32, error) {
	if r.end-r.pos >= 4 {
		v := int32(binary.LittleEndian.Uint32(r.buf[r.pos:]))
		r.pos += 4
		r.offset += 4
		return v, nil
	}

	var b [4]byte
	for i := range b {
		ok, err := r.fill()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, r.truncated("int32")
		}
		b[i] = r.buf[r.pos]
		r.pos++
		r.offset++
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

// NextCString reads bytes up to and including a NUL terminator and returns
// them without the terminator.
func (r *Reader) NextCString() (string, error) {
	r.scratch = r.scratch[:0]
	for {
		ok, err := r.fill()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", r.truncated("cstring")
		}

		chunk := r.buf[r.pos:r.end]
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			var s string
			if len(r.scratch) == 0 {
				s = string(chunk[:i])
			} else {
				r.scratch = append(r.scratch, chunk[:i]...)
				s = string(r.scratch)
			}
			r.pos += i + 1
			r.offset += int64(i + 1)
			return s, nil
		}

		r.scratch = append(r.scratch, chunk...)
		r.offset += int64(len(chunk))
		r.pos = r.end
	}
}

// nextStringList reads strings until the empty terminator.
func (r *Reader) nextStringList() ([]string, error) {
	var list []string
	for {
		s, err := r.NextCString()
		if err != nil {
			return nil, err
		}
		if s == "" {
			return list, nil
		}
		list = append(list, s)
	}
}

// ReadRecord decodes one complete record. It returns io.EOF only when the
// stream ends exactly on a record boundary.
func (r *Reader) ReadRecord() (Record, error) {
	tag, err := r.NextTag()
	if err != nil {
		return Record{}, err
	}

	rec := Record{Tag: tag}
	if rec.Process, err = r.NextInt32(); err != nil {
		return Record{}, err
	}

	switch tag {
	case TagRegister, TagWrite, TagRead, TagRemove:
		rec.Path, err = r.NextCString()
	case TagRename, TagNewLink:
		if rec.Path, err = r.NextCString(); err == nil {
			rec.NewPath, err = r.NextCString()
		}
	case TagNewProgram:
		if rec.Parent, err = r.NextInt32(); err != nil {
			break
		}
		if rec.Argv, err = r.nextStringList(); err != nil {
			break
		}
		rec.Envp, err = r.nextStringList()
	}
	if err != nil {
		return Record{}, err
	}

	return rec, nil
}

// ReadAll decodes every remaining record. Intended for tests and small
// traces; ingestion should stream with ReadRecord.
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.ReadRecord()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
