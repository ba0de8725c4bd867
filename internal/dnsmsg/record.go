package dnsmsg

import (
	"fmt"
	"net"
)

// RecordType is the 16-bit TYPE field of a resource record or question.
// It round-trips through its numeric code without loss: values outside the
// named constants are simply carried as-is, which is how Unknown("any
// other code") is represented — there is no separate wrapper type, because
// the underlying uint16 already preserves the original code exactly.
type RecordType uint16

// The record types this resolver understands structurally. Anything else
// decodes into an UnknownRecord carrying the raw RDATA length but no
// parsed payload.
const (
	TypeA     RecordType = 1
	TypeNS    RecordType = 2
	TypeCNAME RecordType = 5
	TypeMX    RecordType = 15
	TypeAAAA  RecordType = 28
)

// Code returns the wire numeric value of the type.
func (t RecordType) Code() uint16 { return uint16(t) }

// RecordTypeFromUint16 is the total, explicit mapping from wire code to
// RecordType. Every uint16 is a valid RecordType; codes outside the named
// constants are simply unknown record types, not an error.
func RecordTypeFromUint16(code uint16) RecordType {
	return RecordType(code)
}

func (t RecordType) String() string {
	switch t {
	case TypeA:
		return "A"
	case TypeNS:
		return "NS"
	case TypeCNAME:
		return "CNAME"
	case TypeMX:
		return "MX"
	case TypeAAAA:
		return "AAAA"
	default:
		return fmt.Sprintf("TYPE%d", uint16(t))
	}
}

// Preamble is the common prefix shared by every resource record:
// NAME, TYPE, CLASS, TTL, RDLENGTH.
type Preamble struct {
	Name     string
	Type     RecordType
	Class    uint16
	TTL      uint32
	RDLength uint16
}

// Record is the closed tagged union of resource-record variants this
// resolver handles on the wire: A, AAAA, NS, CNAME, MX, and an opaque
// Unknown catch-all. Every concrete variant carries its own Preamble.
type Record interface {
	preamble() *Preamble
}

// ARecord is a type-1 IPv4 address record.
type ARecord struct {
	Pre  Preamble
	Addr net.IP
}

func (r *ARecord) preamble() *Preamble { return &r.Pre }

// AAAARecord is a type-28 IPv6 address record.
type AAAARecord struct {
	Pre  Preamble
	Addr net.IP
}

func (r *AAAARecord) preamble() *Preamble { return &r.Pre }

// NSRecord names an authoritative server for Pre.Name's zone.
type NSRecord struct {
	Pre  Preamble
	Host string
}

func (r *NSRecord) preamble() *Preamble { return &r.Pre }

// CNAMERecord aliases Pre.Name to Host.
type CNAMERecord struct {
	Pre  Preamble
	Host string
}

func (r *CNAMERecord) preamble() *Preamble { return &r.Pre }

// MXRecord names a mail exchange for Pre.Name with a preference weight.
type MXRecord struct {
	Pre        Preamble
	Preference uint16
	Exchange   string
}

func (r *MXRecord) preamble() *Preamble { return &r.Pre }

// UnknownRecord is any record type this codec does not parse structurally.
// Its RDATA is skipped verbatim on read and not carried in memory, so the
// only way to find out what it was is Pre.Type and Pre.RDLength.
type UnknownRecord struct {
	Pre Preamble
}

func (r *UnknownRecord) preamble() *Preamble { return &r.Pre }

// RecordPreamble returns the common preamble of any Record variant.
func RecordPreamble(r Record) Preamble { return *r.preamble() }

func readPreamble(buf *Buffer) (Preamble, error) {
	var p Preamble
	name, err := buf.ReadName()
	if err != nil {
		return p, err
	}
	p.Name = name

	typeCode, err := buf.ReadU16()
	if err != nil {
		return p, err
	}
	p.Type = RecordTypeFromUint16(typeCode)

	if p.Class, err = buf.ReadU16(); err != nil {
		return p, err
	}
	if p.TTL, err = buf.ReadU32(); err != nil {
		return p, err
	}
	if p.RDLength, err = buf.ReadU16(); err != nil {
		return p, err
	}
	return p, nil
}

// ReadRecord decodes one resource record: the common preamble followed by
// a type-dispatched RDATA. Regardless of variant, the cursor always ends
// up exactly RDLength octets past the end of the preamble — for the
// variants with structured RDATA this falls out of reading the right
// fields; for Unknown it is enforced by skipping RDLength octets verbatim.
func ReadRecord(buf *Buffer) (Record, error) {
	pre, err := readPreamble(buf)
	if err != nil {
		return nil, err
	}
	rdataStart := buf.Position()

	var rec Record
	switch pre.Type {
	case TypeA:
		raw, err := buf.GetRange(buf.Position(), 4)
		if err != nil {
			return nil, err
		}
		if err := buf.Step(4); err != nil {
			return nil, err
		}
		rec = &ARecord{Pre: pre, Addr: net.IP(raw)}
	case TypeAAAA:
		raw, err := buf.GetRange(buf.Position(), 16)
		if err != nil {
			return nil, err
		}
		if err := buf.Step(16); err != nil {
			return nil, err
		}
		rec = &AAAARecord{Pre: pre, Addr: net.IP(raw)}
	case TypeNS:
		host, err := buf.ReadName()
		if err != nil {
			return nil, err
		}
		rec = &NSRecord{Pre: pre, Host: host}
	case TypeCNAME:
		host, err := buf.ReadName()
		if err != nil {
			return nil, err
		}
		rec = &CNAMERecord{Pre: pre, Host: host}
	case TypeMX:
		preference, err := buf.ReadU16()
		if err != nil {
			return nil, err
		}
		exchange, err := buf.ReadName()
		if err != nil {
			return nil, err
		}
		rec = &MXRecord{Pre: pre, Preference: preference, Exchange: exchange}
	default:
		if err := buf.Step(int(pre.RDLength)); err != nil {
			return nil, err
		}
		rec = &UnknownRecord{Pre: pre}
	}

	// NS/CNAME/MX names may use compression and land anywhere; the
	// preamble's declared length is authoritative for section framing, so
	// re-seek to it rather than trust wherever ReadName's jumps left us.
	if err := buf.Seek(rdataStart + int(pre.RDLength)); err != nil {
		return nil, err
	}
	return rec, nil
}

func writePreamble(buf *Buffer, p Preamble) error {
	if err := buf.WriteName(p.Name); err != nil {
		return err
	}
	if err := buf.WriteU16(p.Type.Code()); err != nil {
		return err
	}
	if err := buf.WriteU16(ClassIN); err != nil {
		return err
	}
	return buf.WriteU32(p.TTL)
}

// WriteRecord encodes the common preamble prefix (name, type, class=IN,
// ttl) followed by RDATA, back-patching RDLENGTH for variable-length
// payloads. It returns the number of octets written.
func WriteRecord(buf *Buffer, r Record) (int, error) {
	start := buf.Position()

	switch rec := r.(type) {
	case *ARecord:
		if err := writePreamble(buf, rec.Pre); err != nil {
			return 0, err
		}
		if err := buf.WriteU16(4); err != nil {
			return 0, err
		}
		ip4 := rec.Addr.To4()
		for _, b := range ip4 {
			if err := buf.WriteU8(b); err != nil {
				return 0, err
			}
		}
	case *AAAARecord:
		if err := writePreamble(buf, rec.Pre); err != nil {
			return 0, err
		}
		if err := buf.WriteU16(16); err != nil {
			return 0, err
		}
		ip16 := rec.Addr.To16()
		for _, b := range ip16 {
			if err := buf.WriteU8(b); err != nil {
				return 0, err
			}
		}
	case *NSRecord:
		if err := writePreamble(buf, rec.Pre); err != nil {
			return 0, err
		}
		if err := writeLenPrefixedName(buf, rec.Host); err != nil {
			return 0, err
		}
	case *CNAMERecord:
		if err := writePreamble(buf, rec.Pre); err != nil {
			return 0, err
		}
		if err := writeLenPrefixedName(buf, rec.Host); err != nil {
			return 0, err
		}
	case *MXRecord:
		if err := writePreamble(buf, rec.Pre); err != nil {
			return 0, err
		}
		pos0 := buf.Position()
		if err := buf.WriteU16(0); err != nil {
			return 0, err
		}
		if err := buf.WriteU16(rec.Preference); err != nil {
			return 0, err
		}
		if err := buf.WriteName(rec.Exchange); err != nil {
			return 0, err
		}
		if err := backpatchLength(buf, pos0); err != nil {
			return 0, err
		}
	case *UnknownRecord:
		if err := writePreamble(buf, rec.Pre); err != nil {
			return 0, err
		}
		if err := buf.WriteU16(0); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("dnsmsg: unwritable record type %T", r)
	}

	return buf.Position() - start, nil
}

// writeLenPrefixedName writes a zero placeholder RDLENGTH, the name, then
// back-patches the real length. Used by NS/CNAME whose RDATA is a single
// domain name.
func writeLenPrefixedName(buf *Buffer, name string) error {
	pos0 := buf.Position()
	if err := buf.WriteU16(0); err != nil {
		return err
	}
	if err := buf.WriteName(name); err != nil {
		return err
	}
	return backpatchLength(buf, pos0)
}

// backpatchLength fills in the RDLENGTH placeholder written at pos0 with
// the number of RDATA octets written since, then leaves the cursor at the
// current (post-RDATA) position. pos0 is the position of the length field
// itself, so the RDATA starts at pos0+2; the field does not count itself.
func backpatchLength(buf *Buffer, pos0 int) error {
	cur := buf.Position()
	size := cur - pos0 - 2
	if err := buf.SetU16(pos0, uint16(size)); err != nil {
		return err
	}
	return buf.Seek(cur)
}
