// Package fmp4 assembles fragmented ISO-BMFF box trees for fMP4 delivery.
// Trees are built fully in memory and sized before a single byte is emitted;
// a serialized segment is never partially written.
package fmp4

import (
	"encoding/binary"
)

// Box is one typed node of an ISO-BMFF tree. Leaf boxes carry a payload,
// container boxes carry children; full boxes prepend version and flags.
type Box struct {
	Type     string
	Full     bool
	Version  byte
	Flags    uint32
	Payload  []byte
	Children []*Box
}

func newBox(boxType string, children ...*Box) *Box {
	return &Box{Type: boxType, Children: children}
}

func newFullBox(boxType string, version byte, flags uint32, payload []byte) *Box {
	return &Box{
		Type:    boxType,
		Full:    true,
		Version: version,
		Flags:   flags,
		Payload: payload,
	}
}

// Size returns the total serialized size of the box including its header and
// all descendants.
func (b *Box) Size() int {
	n := 8 + len(b.Payload)
	if b.Full {
		n += 4
	}
	for _, c := range b.Children {
		n += c.Size()
	}
	return n
}

func (b *Box) append(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(b.Size()))
	dst = append(dst, b.Type...)
	if b.Full {
		dst = append(dst, b.Version, byte(b.Flags>>16), byte(b.Flags>>8), byte(b.Flags))
	}
	dst = append(dst, b.Payload...)
	for _, c := range b.Children {
		dst = c.append(dst)
	}
	return dst
}

// Bytes serializes the box tree big-endian in declaration order.
func (b *Box) Bytes() []byte {
	return b.append(make([]byte, 0, b.Size()))
}

// Segment is an ordered sequence of top-level boxes forming one init or media
// segment. Immutable once serialized.
type Segment struct {
	boxes []*Box
}

// Size returns the total serialized segment size.
func (s *Segment) Size() int {
	n := 0
	for _, b := range s.boxes {
		n += b.Size()
	}
	return n
}

// Bytes serializes every top-level box in order.
func (s *Segment) Bytes() []byte {
	dst := make([]byte, 0, s.Size())
	for _, b := range s.boxes {
		dst = b.append(dst)
	}
	return dst
}

// payload accumulates big-endian field bytes for leaf boxes.
type payload struct {
	b []byte
}

func (p *payload) u8(v byte)      { p.b = append(p.b, v) }
func (p *payload) u16(v uint16)   { p.b = binary.BigEndian.AppendUint16(p.b, v) }
func (p *payload) u32(v uint32)   { p.b = binary.BigEndian.AppendUint32(p.b, v) }
func (p *payload) u64(v uint64)   { p.b = binary.BigEndian.AppendUint64(p.b, v) }
func (p *payload) i16(v int16)    { p.u16(uint16(v)) }
func (p *payload) i32(v int32)    { p.u32(uint32(v)) }
func (p *payload) raw(v []byte)   { p.b = append(p.b, v...) }
func (p *payload) zero(n int)     { p.b = append(p.b, make([]byte, n)...) }
func (p *payload) str(v string)   { p.b = append(p.b, v...) }

// fixedStr writes v into a fixed-width field, zero padded.
func (p *payload) fixedStr(v string, width int) {
	buf := make([]byte, width)
	copy(buf, v)
	p.b = append(p.b, buf...)
}

// identity transform matrix shared by mvhd and tkhd.
func (p *payload) matrix() {
	p.u32(0x00010000)
	p.zero(12)
	p.u32(0x00010000)
	p.zero(12)
	p.u32(0x40000000)
}
