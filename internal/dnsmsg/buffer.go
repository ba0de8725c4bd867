package dnsmsg

import "strings"

// PacketSize is the fixed size of a classic (non-EDNS) DNS-over-UDP message.
const PacketSize = 512

// MaxJumps bounds the number of compression-pointer hops ReadName will
// follow before giving up. RFC 1035 names are finite; a well-formed message
// never needs more than a couple of hops, so 5 is generous headroom against
// pointer cycles.
const MaxJumps = 5

// Buffer is a fixed 512-octet backing store with a single forward cursor
// plus random-access peek/poke, mirroring the wire layout of one DNS
// message. Every read/write primitive bound-checks against PacketSize
// before touching the backing array.
type Buffer struct {
	Buf [PacketSize]byte
	Pos int
}

// NewBuffer returns an empty buffer with the cursor at 0.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Load resets the buffer and copies data into it starting at offset 0.
// Input longer than PacketSize is truncated to PacketSize, matching the
// classic (non-EDNS) message size this codec targets.
func (b *Buffer) Load(data []byte) {
	b.Pos = 0
	n := copy(b.Buf[:], data)
	for i := n; i < PacketSize; i++ {
		b.Buf[i] = 0
	}
}

// Position returns the current cursor position.
func (b *Buffer) Position() int {
	return b.Pos
}

// Step advances the cursor by steps without bound-checking the destination;
// callers that step past 512 will fail on the next bound-checked operation.
func (b *Buffer) Step(steps int) error {
	b.Pos += steps
	return nil
}

// Seek moves the cursor to an absolute position. pos must be < PacketSize.
func (b *Buffer) Seek(pos int) error {
	if pos >= PacketSize {
		return ErrBufferOverflow
	}
	b.Pos = pos
	return nil
}

// ReadU8 reads a single big-endian octet and advances the cursor by 1.
func (b *Buffer) ReadU8() (byte, error) {
	if b.Pos >= PacketSize {
		return 0, ErrBufferOverflow
	}
	v := b.Buf[b.Pos]
	b.Pos++
	return v, nil
}

// ReadU16 reads a big-endian 16-bit value and advances the cursor by 2.
func (b *Buffer) ReadU16() (uint16, error) {
	if b.Pos+2 > PacketSize {
		return 0, ErrBufferOverflow
	}
	v := uint16(b.Buf[b.Pos])<<8 | uint16(b.Buf[b.Pos+1])
	b.Pos += 2
	return v, nil
}

// ReadU32 reads a big-endian 32-bit value and advances the cursor by 4.
func (b *Buffer) ReadU32() (uint32, error) {
	if b.Pos+4 > PacketSize {
		return 0, ErrBufferOverflow
	}
	v := uint32(b.Buf[b.Pos])<<24 | uint32(b.Buf[b.Pos+1])<<16 | uint32(b.Buf[b.Pos+2])<<8 | uint32(b.Buf[b.Pos+3])
	b.Pos += 4
	return v, nil
}

// WriteU8 writes a single octet and advances the cursor by 1.
func (b *Buffer) WriteU8(v byte) error {
	if b.Pos >= PacketSize {
		return ErrBufferOverflow
	}
	b.Buf[b.Pos] = v
	b.Pos++
	return nil
}

// WriteU16 writes a big-endian 16-bit value and advances the cursor by 2.
// The full width is bound-checked up front, unlike a read-check-per-byte
// scheme that could write the high octet and then fail on the low one.
func (b *Buffer) WriteU16(v uint16) error {
	if b.Pos+2 > PacketSize {
		return ErrBufferOverflow
	}
	b.Buf[b.Pos] = byte(v >> 8)
	b.Buf[b.Pos+1] = byte(v)
	b.Pos += 2
	return nil
}

// WriteU32 writes a big-endian 32-bit value and advances the cursor by 4.
func (b *Buffer) WriteU32(v uint32) error {
	if b.Pos+4 > PacketSize {
		return ErrBufferOverflow
	}
	b.Buf[b.Pos] = byte(v >> 24)
	b.Buf[b.Pos+1] = byte(v >> 16)
	b.Buf[b.Pos+2] = byte(v >> 8)
	b.Buf[b.Pos+3] = byte(v)
	b.Pos += 4
	return nil
}

// Get peeks the octet at an absolute index without moving the cursor.
func (b *Buffer) Get(pos int) (byte, error) {
	if pos >= PacketSize {
		return 0, ErrBufferOverflow
	}
	return b.Buf[pos], nil
}

// GetRange returns a copy of [start, start+length) without moving the
// cursor. The upper bound is exclusive of the past-the-end index, so a
// range that ends exactly at PacketSize is valid.
func (b *Buffer) GetRange(start, length int) ([]byte, error) {
	if start < 0 || length < 0 || start+length > PacketSize {
		return nil, ErrBufferOverflow
	}
	out := make([]byte, length)
	copy(out, b.Buf[start:start+length])
	return out, nil
}

// WriteRange writes data at an absolute position without requiring the
// cursor to be there; used for length back-patching.
func (b *Buffer) WriteRange(start int, data []byte) error {
	if start < 0 || start+len(data) > PacketSize {
		return ErrBufferOverflow
	}
	copy(b.Buf[start:start+len(data)], data)
	return nil
}

// SetU16 back-patches a big-endian 16-bit value at an absolute position
// without touching the cursor: high byte at pos, low byte at pos+1.
func (b *Buffer) SetU16(pos int, value uint16) error {
	if pos+2 > PacketSize {
		return ErrBufferOverflow
	}
	b.Buf[pos] = byte(value >> 8)
	b.Buf[pos+1] = byte(value)
	return nil
}

// ReadName decodes an RFC 1035 §4.1.4 domain name starting at the current
// cursor, following compression pointers as needed. The result is a
// lowercase, dot-joined string without a trailing dot ("" for the root).
// On return the buffer cursor sits just past the first pointer encountered
// (or past the terminating zero octet if no pointer was used), per the
// wire rule that a name's on-wire length is fixed even though decoding may
// wander elsewhere in the message to resolve pointers.
func (b *Buffer) ReadName() (string, error) {
	pos := b.Pos
	jumped := false
	jumps := 0

	var labels []string
	for {
		lenByte, err := b.Get(pos)
		if err != nil {
			return "", err
		}

		if lenByte&0xC0 == 0xC0 {
			if jumps >= MaxJumps {
				return "", ErrMaxJumpsAttained
			}
			b2, err := b.Get(pos + 1)
			if err != nil {
				return "", err
			}
			if !jumped {
				b.Pos = pos + 2
			}
			offset := (int(lenByte&0x3F) << 8) | int(b2)
			pos = offset
			jumped = true
			jumps++
			continue
		}

		pos++
		if lenByte == 0 {
			break
		}

		label, err := b.GetRange(pos, int(lenByte))
		if err != nil {
			return "", err
		}
		labels = append(labels, strings.ToLower(string(label)))
		pos += int(lenByte)
	}

	if !jumped {
		b.Pos = pos
	}
	return strings.Join(labels, "."), nil
}

// WriteName encodes name (a dot-joined domain name with no trailing dot
// expected, "" or "." for the root) as a sequence of length-prefixed labels
// terminated by a zero octet. Label octets are written as given, without
// case folding; ReadName lowercases on decode. It does not compress on
// output: simpler, and still a valid wire name.
func (b *Buffer) WriteName(name string) error {
	name = strings.TrimSuffix(name, ".")
	if name != "" {
		for _, label := range strings.Split(name, ".") {
			if len(label) > 63 {
				return ErrLabelLengthOver63
			}
			if err := b.WriteU8(byte(len(label))); err != nil {
				return err
			}
			for i := 0; i < len(label); i++ {
				if err := b.WriteU8(label[i]); err != nil {
					return err
				}
			}
		}
	}
	return b.WriteU8(0)
}
