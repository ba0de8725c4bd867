package dnsmsg

import (
	"net"
	"strings"
)

// Packet is a complete DNS message: a header plus its four ordered record
// sections. It is the unit the resolver decodes inbound datagrams into and
// encodes outbound responses from.
type Packet struct {
	Header      Header
	Questions   []Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

// NewPacket returns an empty packet ready to be populated and serialized.
func NewPacket() *Packet {
	return &Packet{}
}

// FromBuffer decodes a full packet from buf: the header, then each section
// in header-count order (questions, answers, authorities, additionals).
func (p *Packet) FromBuffer(buf *Buffer) error {
	if err := p.Header.Read(buf); err != nil {
		return err
	}
	for i := 0; i < int(p.Header.QuestionCount); i++ {
		var q Question
		if err := q.Read(buf); err != nil {
			return err
		}
		p.Questions = append(p.Questions, q)
	}
	for i := 0; i < int(p.Header.AnswerCount); i++ {
		r, err := ReadRecord(buf)
		if err != nil {
			return err
		}
		p.Answers = append(p.Answers, r)
	}
	for i := 0; i < int(p.Header.AuthorityCount); i++ {
		r, err := ReadRecord(buf)
		if err != nil {
			return err
		}
		p.Authorities = append(p.Authorities, r)
	}
	for i := 0; i < int(p.Header.AdditionalCount); i++ {
		r, err := ReadRecord(buf)
		if err != nil {
			return err
		}
		p.Additionals = append(p.Additionals, r)
	}
	return nil
}

// Write serializes the packet into buf in the same section order it was
// parsed in, recomputing the header's four counts from the actual section
// lengths first.
func (p *Packet) Write(buf *Buffer) error {
	p.Header.QuestionCount = uint16(len(p.Questions))
	p.Header.AnswerCount = uint16(len(p.Answers))
	p.Header.AuthorityCount = uint16(len(p.Authorities))
	p.Header.AdditionalCount = uint16(len(p.Additionals))

	if err := p.Header.Write(buf); err != nil {
		return err
	}
	for i := range p.Questions {
		if err := p.Questions[i].Write(buf); err != nil {
			return err
		}
	}
	for _, r := range p.Answers {
		if _, err := WriteRecord(buf, r); err != nil {
			return err
		}
	}
	for _, r := range p.Authorities {
		if _, err := WriteRecord(buf, r); err != nil {
			return err
		}
	}
	for _, r := range p.Additionals {
		if _, err := WriteRecord(buf, r); err != nil {
			return err
		}
	}
	return nil
}

// AddQuestion appends a question and keeps the header's question count in
// sync with it.
func (p *Packet) AddQuestion(name string, qtype RecordType) {
	p.Questions = append(p.Questions, NewQuestion(name, qtype))
	p.Header.QuestionCount = uint16(len(p.Questions))
}

// GetRandomA returns the IPv4 address of the first A record in the answer
// section, if any. Despite the name (kept for fidelity with the resolver
// this was distilled from) it does not randomize: it is always the first
// A answer found by iterating in order.
func (p *Packet) GetRandomA() (net.IP, bool) {
	for _, r := range p.Answers {
		if a, ok := r.(*ARecord); ok {
			return a.Addr, true
		}
	}
	return nil, false
}

// isSubdomainOf reports whether qname is zone itself or a subdomain of it,
// treating both as dot-joined names without a trailing dot.
func isSubdomainOf(qname, zone string) bool {
	if zone == "" {
		return true // the root zone matches everything
	}
	qname = strings.ToLower(qname)
	zone = strings.ToLower(zone)
	return qname == zone || strings.HasSuffix(qname, "."+zone)
}

// nsMatch is one authority-section NS record whose zone covers qname.
type nsMatch struct {
	Zone string
	Host string
}

// matchNS iterates authority NS records whose preamble name is a suffix of
// (or equal to) qname, yielding the owning zone and the delegated host for
// each.
func (p *Packet) matchNS(qname string) []nsMatch {
	var matches []nsMatch
	for _, r := range p.Authorities {
		ns, ok := r.(*NSRecord)
		if !ok {
			continue
		}
		if isSubdomainOf(qname, ns.Pre.Name) {
			matches = append(matches, nsMatch{Zone: ns.Pre.Name, Host: ns.Host})
		}
	}
	return matches
}

// GetResolvedNS returns the IPv4 glue address for the first authority NS
// record that has glue: for each NS whose zone covers qname, in authority
// section order, it searches
// the additional section for an A record naming that NS host and returns
// the first such address found.
func (p *Packet) GetResolvedNS(qname string) (net.IP, bool) {
	for _, m := range p.matchNS(qname) {
		for _, r := range p.Additionals {
			a, ok := r.(*ARecord)
			if !ok {
				continue
			}
			if strings.EqualFold(a.Pre.Name, m.Host) {
				return a.Addr, true
			}
		}
	}
	return nil, false
}

// GetUnresolvedNS returns the host name of the first authority NS record
// whose zone covers qname, without requiring a matching glue record. Used
// when a referral carries no additional-section A record for its NS.
func (p *Packet) GetUnresolvedNS(qname string) (string, bool) {
	matches := p.matchNS(qname)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].Host, true
}
