package dnsmsg

import (
	"bytes"
	"testing"
)

func TestQuestionEncode(t *testing.T) {
	q := NewQuestion("www.example.com", TypeA)
	buf := NewBuffer()
	if err := q.Write(buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := []byte{
		0x03, 'w', 'w', 'w',
		0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		0x03, 'c', 'o', 'm',
		0x00,
		0x00, 0x01, // QTYPE A
		0x00, 0x01, // QCLASS IN
	}
	got := buf.Buf[:buf.Position()]
	if !bytes.Equal(got, want) {
		t.Errorf("encoded question =\n%x\nwant\n%x", got, want)
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	q := NewQuestion("mail.example.com", TypeMX)
	buf := NewBuffer()
	_ = q.Write(buf)
	buf.Seek(0)

	var decoded Question
	if err := decoded.Read(buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if decoded.Name != "mail.example.com" || decoded.Type != TypeMX || decoded.Class != ClassIN {
		t.Errorf("decoded question = %+v", decoded)
	}
}

func TestQuestionAcceptsNonINClass(t *testing.T) {
	buf := NewBuffer()
	_ = buf.WriteName("example.com")
	_ = buf.WriteU16(TypeA.Code())
	_ = buf.WriteU16(3) // CH class
	buf.Seek(0)

	var q Question
	if err := q.Read(buf); err != nil {
		t.Fatalf("Read should accept non-IN class, got: %v", err)
	}
	if q.Class != 3 {
		t.Errorf("Class = %d, want 3", q.Class)
	}
}
