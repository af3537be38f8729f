package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// StateMagic tags a retrocore save-state stream; StateVersion is the
// core format version (not a per-system version). Both are checked by
// Decoder before any component keys are read.
const (
	StateMagic   uint32 = 0x52434F52 // "RCOR"
	StateVersion uint32 = 1
)

// Encoder builds a save-state stream: a 4-byte magic, 4-byte core
// version, a system type tag, and then one length-prefixed (key,
// bytes) pair per serializable component, written leaves-first by the
// caller (spec §6).
type Encoder struct {
	buf      bytes.Buffer
	system   string
	wroteHdr bool
}

func NewEncoder(system string) *Encoder {
	return &Encoder{system: system}
}

func (e *Encoder) writeHeader() {
	if e.wroteHdr {
		return
	}
	binary.Write(&e.buf, binary.LittleEndian, StateMagic)
	binary.Write(&e.buf, binary.LittleEndian, StateVersion)
	writeString(&e.buf, e.system)
	e.wroteHdr = true
}

// WriteField appends one (key, bytes) component to the stream.
func (e *Encoder) WriteField(key string, data []byte) {
	e.writeHeader()
	writeString(&e.buf, key)
	binary.Write(&e.buf, binary.LittleEndian, uint32(len(data)))
	e.buf.Write(data)
}

// WriteUint8/16/32/64 and WriteBytes are convenience wrappers used by
// component State implementations so they don't each hand-roll a
// scratch buffer.
func (e *Encoder) WriteUint8(key string, v uint8)   { e.WriteField(key, []byte{v}) }
func (e *Encoder) WriteBool(key string, v bool) {
	var b uint8
	if v {
		b = 1
	}
	e.WriteUint8(key, b)
}
func (e *Encoder) WriteUint16(key string, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.WriteField(key, b[:])
}
func (e *Encoder) WriteUint32(key string, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.WriteField(key, b[:])
}
func (e *Encoder) WriteUint64(key string, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.WriteField(key, b[:])
}
func (e *Encoder) WriteBytes(key string, v []byte) { e.WriteField(key, v) }

// Bytes finalizes the stream.
func (e *Encoder) Bytes() []byte {
	e.writeHeader()
	return e.buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

// Decoder reads back a stream built by Encoder. Unknown keys are
// tolerated (forward compatibility); a component asking for a key
// that isn't present gets a *SaveStateError from Field (or false from
// OptionalField) so it can decide whether that key was required.
type Decoder struct {
	System string
	fields map[string][]byte
	order  []string
}

// NewDecoder parses the header and indexes every (key, bytes) pair.
// It does not validate that required keys are present -- that is each
// component's job via Decoder.Field, which returns SaveStateError.
func NewDecoder(data []byte) (*Decoder, error) {
	r := bytes.NewReader(data)

	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, &SaveStateError{Reason: "truncated header"}
	}
	if magic != StateMagic {
		return nil, &SaveStateError{Reason: fmt.Sprintf("bad magic %#x", magic)}
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, &SaveStateError{Reason: "truncated header"}
	}
	if version != StateVersion {
		return nil, &SaveStateError{Reason: fmt.Sprintf("unsupported version %d (want %d)", version, StateVersion)}
	}

	system, err := readString(r)
	if err != nil {
		return nil, &SaveStateError{Reason: "truncated system tag"}
	}

	d := &Decoder{System: system, fields: map[string][]byte{}}
	for r.Len() > 0 {
		key, err := readString(r)
		if err != nil {
			return nil, &SaveStateError{Reason: "truncated key"}
		}
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, &SaveStateError{Key: key, Reason: "truncated length"}
		}
		payload := make([]byte, n)
		if k, err := r.Read(payload); k != int(n) || (err != nil && n > 0) {
			return nil, &SaveStateError{Key: key, Reason: "truncated payload"}
		}
		d.fields[key] = payload
		d.order = append(d.order, key)
	}

	return d, nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if k, err := r.Read(b); k != int(n) || (err != nil && n > 0) {
		return "", fmt.Errorf("short read")
	}
	return string(b), nil
}

// Field returns the required component payload for key, or a
// SaveStateError if it's missing. This is the "backward compatible
// only within the same major version" half of spec §6: a missing
// required key is a hard failure.
func (d *Decoder) Field(key string) ([]byte, error) {
	v, ok := d.fields[key]
	if !ok {
		return nil, &SaveStateError{Key: key, Reason: "missing required key"}
	}
	return v, nil
}

// OptionalField returns the payload for key and whether it was
// present, for forward-compatible reads of fields older states may
// lack.
func (d *Decoder) OptionalField(key string) ([]byte, bool) {
	v, ok := d.fields[key]
	return v, ok
}

func (d *Decoder) Uint8(key string) (uint8, error) {
	b, err := d.Field(key)
	if err != nil {
		return 0, err
	}
	if len(b) != 1 {
		return 0, &SaveStateError{Key: key, Reason: "size mismatch"}
	}
	return b[0], nil
}

func (d *Decoder) Bool(key string) (bool, error) {
	v, err := d.Uint8(key)
	return v != 0, err
}

func (d *Decoder) Uint16(key string) (uint16, error) {
	b, err := d.Field(key)
	if err != nil {
		return 0, err
	}
	if len(b) != 2 {
		return 0, &SaveStateError{Key: key, Reason: "size mismatch"}
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *Decoder) Uint32(key string) (uint32, error) {
	b, err := d.Field(key)
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, &SaveStateError{Key: key, Reason: "size mismatch"}
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Decoder) Uint64(key string) (uint64, error) {
	b, err := d.Field(key)
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, &SaveStateError{Key: key, Reason: "size mismatch"}
	}
	return binary.LittleEndian.Uint64(b), nil
}
