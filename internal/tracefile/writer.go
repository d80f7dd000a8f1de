package tracefile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Writer encodes records in the trace protocol. Errors are sticky: once a
// write fails every later call returns the same error.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter returns a Writer that buffers output to w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteRecord encodes one record.
func (w *Writer) WriteRecord(rec Record) error {
	if w.err != nil {
		return w.err
	}
	if err := validate(rec); err != nil {
		return err
	}

	w.err = w.w.WriteByte(byte(rec.Tag))
	w.int32(rec.Process)

	switch rec.Tag {
	case TagRegister, TagWrite, TagRead, TagRemove:
		w.cstring(rec.Path)
	case TagRename, TagNewLink:
		w.cstring(rec.Path)
		w.cstring(rec.NewPath)
	case TagNewProgram:
		w.int32(rec.Parent)
		for _, a := range rec.Argv {
			w.cstring(a)
		}
		w.cstring("")
		for _, e := range rec.Envp {
			w.cstring(e)
		}
		w.cstring("")
	}
	return w.err
}

// WriteAll encodes records in order.
func (w *Writer) WriteAll(recs []Record) error {
	for _, rec := range recs {
		if err := w.WriteRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

func (w *Writer) int32(v int32) {
	if w.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	_, w.err = w.w.Write(b[:])
}

func (w *Writer) cstring(s string) {
	if w.err != nil {
		return
	}
	if _, w.err = w.w.WriteString(s); w.err == nil {
		w.err = w.w.WriteByte(0)
	}
}

// validate rejects records the wire format cannot represent.
func validate(rec Record) error {
	if !rec.Tag.Valid() {
		return fmt.Errorf("encode record: unknown tag %d", uint8(rec.Tag))
	}
	for _, s := range []string{rec.Path, rec.NewPath} {
		if strings.IndexByte(s, 0) >= 0 {
			return fmt.Errorf("encode %s: %w", rec.Tag, errNUL)
		}
	}
	for _, list := range [][]string{rec.Argv, rec.Envp} {
		for i, s := range list {
			if s == "" {
				return fmt.Errorf("encode %s: empty string at list index %d would terminate the list", rec.Tag, i)
			}
			if strings.IndexByte(s, 0) >= 0 {
				return fmt.Errorf("encode %s: %w", rec.Tag, errNUL)
			}
		}
	}
	return nil
}
