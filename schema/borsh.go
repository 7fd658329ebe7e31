package schema

import (
	"bytes"
	"encoding/binary"
)

// encoder writes values in the borsh layout used by the on-chain metadata
// record: little-endian integers, u32-length-prefixed strings, one-byte
// option tags and enum variants.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) writeU8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *encoder) writeU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) writeU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) writeU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) writeBool(v bool) {
	e.writeU8(boolByte(v))
}

func (e *encoder) writeOptionTag(present bool) {
	e.writeU8(boolByte(present))
}

func (e *encoder) writeString(s string) {
	e.writeU32(uint32(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) writeBytes(b []byte) {
	e.buf.Write(b)
}

func (e *encoder) bytes() []byte {
	return e.buf.Bytes()
}
