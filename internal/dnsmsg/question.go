package dnsmsg

import "log/slog"

// ClassIN is the only record class this resolver constructs locally.
const ClassIN uint16 = 1

// Question is a single entry in a message's question section.
type Question struct {
	Name   string
	Type   RecordType
	Class  uint16
}

// NewQuestion builds a Question with Class fixed to IN, as the codec always
// does for locally-constructed queries.
func NewQuestion(name string, qtype RecordType) Question {
	return Question{Name: name, Type: qtype, Class: ClassIN}
}

// Read decodes (QNAME, QTYPE, QCLASS) from buf. A non-IN class is accepted
// but logged, matching the teacher's "parsed but warned" behavior for
// classes this resolver never issues itself.
func (q *Question) Read(buf *Buffer) error {
	name, err := buf.ReadName()
	if err != nil {
		return err
	}
	q.Name = name

	qtype, err := buf.ReadU16()
	if err != nil {
		return err
	}
	q.Type = RecordTypeFromUint16(qtype)

	class, err := buf.ReadU16()
	if err != nil {
		return err
	}
	q.Class = class
	if q.Class != ClassIN {
		slog.Default().Warn("question class is not IN", "name", q.Name, "class", q.Class)
	}
	return nil
}

// Write encodes the question as qname, qtype, qclass (always IN on write).
func (q *Question) Write(buf *Buffer) error {
	if err := buf.WriteName(q.Name); err != nil {
		return err
	}
	if err := buf.WriteU16(q.Type.Code()); err != nil {
		return err
	}
	return buf.WriteU16(ClassIN)
}
