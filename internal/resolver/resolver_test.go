package resolver

import (
	"log/slog"
	"net"
	"strings"
	"testing"

	"github.com/mpolden/stubdns/internal/dnsmsg"
)

func TestLookupOverUDP(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("ListenUDP failed: %v", err)
	}

	go func() {
		defer conn.Close()
		buf := make([]byte, dnsmsg.PacketSize)
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		reqBuf := dnsmsg.NewBuffer()
		reqBuf.Load(buf[:n])
		req := dnsmsg.NewPacket()
		_ = req.FromBuffer(reqBuf)

		resp := dnsmsg.NewPacket()
		resp.Header.ID = req.Header.ID
		resp.Header.Response = true
		if len(req.Questions) > 0 {
			resp.AddQuestion(req.Questions[0].Name, req.Questions[0].Type)
			resp.Answers = append(resp.Answers, &dnsmsg.ARecord{
				Pre:  dnsmsg.Preamble{Name: req.Questions[0].Name, Type: dnsmsg.TypeA, TTL: 300},
				Addr: net.ParseIP("9.9.9.9"),
			})
		}

		respBuf := dnsmsg.NewBuffer()
		_ = resp.Write(respBuf)
		_, _ = conn.WriteToUDP(respBuf.Buf[:respBuf.Position()], remote)
	}()

	r := New(slog.Default())
	resp, err := r.Lookup("query.test", dnsmsg.TypeA, conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(resp.Answers) == 0 {
		t.Fatal("expected an answer")
	}
	a := resp.Answers[0].(*dnsmsg.ARecord)
	if !a.Addr.Equal(net.ParseIP("9.9.9.9")) {
		t.Errorf("answer addr = %v, want 9.9.9.9", a.Addr)
	}
}

func TestRecursiveLookupFollowsGlue(t *testing.T) {
	r := New(slog.Default())
	r.queryFn = func(qname string, qtype dnsmsg.RecordType, server string) (*dnsmsg.Packet, error) {
		resp := dnsmsg.NewPacket()
		resp.Header.Response = true

		if strings.HasPrefix(server, "1.1.1.1") {
			resp.Answers = append(resp.Answers, &dnsmsg.ARecord{
				Pre:  dnsmsg.Preamble{Name: qname, Type: dnsmsg.TypeA, TTL: 300},
				Addr: net.ParseIP("10.20.30.40"),
			})
			return resp, nil
		}

		resp.Authorities = append(resp.Authorities, &dnsmsg.NSRecord{
			Pre:  dnsmsg.Preamble{Name: "com", Type: dnsmsg.TypeNS},
			Host: "ns1.com-server.net",
		})
		resp.Additionals = append(resp.Additionals, &dnsmsg.ARecord{
			Pre:  dnsmsg.Preamble{Name: "ns1.com-server.net", Type: dnsmsg.TypeA},
			Addr: net.ParseIP("1.1.1.1"),
		})
		return resp, nil
	}

	resp, err := r.RecursiveLookup("test.com", dnsmsg.TypeA)
	if err != nil {
		t.Fatalf("RecursiveLookup failed: %v", err)
	}
	if len(resp.Answers) == 0 {
		t.Fatal("expected an answer")
	}
	a := resp.Answers[0].(*dnsmsg.ARecord)
	if !a.Addr.Equal(net.ParseIP("10.20.30.40")) {
		t.Errorf("answer addr = %v, want 10.20.30.40", a.Addr)
	}
}

func TestRecursiveLookupTerminatesOnNXDomain(t *testing.T) {
	r := New(slog.Default())
	r.queryFn = func(qname string, qtype dnsmsg.RecordType, server string) (*dnsmsg.Packet, error) {
		resp := dnsmsg.NewPacket()
		resp.Header.Response = true
		resp.Header.ResponseCode = dnsmsg.RcodeNXDomain
		return resp, nil
	}

	resp, err := r.RecursiveLookup("nonexistent.io", dnsmsg.TypeA)
	if err != nil {
		t.Fatalf("expected no error for NXDOMAIN, got %v", err)
	}
	if resp.Header.ResponseCode != dnsmsg.RcodeNXDomain {
		t.Errorf("ResponseCode = %v, want NXDomain", resp.Header.ResponseCode)
	}
}

func TestRecursiveLookupTerminatesWithNoReferral(t *testing.T) {
	r := New(slog.Default())
	calls := 0
	r.queryFn = func(qname string, qtype dnsmsg.RecordType, server string) (*dnsmsg.Packet, error) {
		calls++
		resp := dnsmsg.NewPacket()
		resp.Header.Response = true
		// No answers, no authorities, no additionals.
		return resp, nil
	}

	resp, err := r.RecursiveLookup("deadend.test", dnsmsg.TypeA)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.Answers) != 0 {
		t.Error("expected no answers")
	}
	if calls != 1 {
		t.Errorf("expected exactly one query when there is no referral to follow, got %d", calls)
	}
}

func TestRecursiveLookupRespectsIterationCap(t *testing.T) {
	r := New(slog.Default())
	calls := 0
	var nextIP byte = 1
	r.queryFn = func(qname string, qtype dnsmsg.RecordType, server string) (*dnsmsg.Packet, error) {
		calls++
		resp := dnsmsg.NewPacket()
		resp.Header.Response = true
		// Every response hands back a fresh resolvable NS, forming a cycle
		// that never produces an answer or NXDOMAIN.
		nextIP++
		resp.Authorities = append(resp.Authorities, &dnsmsg.NSRecord{
			Pre:  dnsmsg.Preamble{Name: "loop.test", Type: dnsmsg.TypeNS},
			Host: "ns.loop.test",
		})
		resp.Additionals = append(resp.Additionals, &dnsmsg.ARecord{
			Pre:  dnsmsg.Preamble{Name: "ns.loop.test", Type: dnsmsg.TypeA},
			Addr: net.IPv4(10, 0, 0, nextIP%250+1),
		})
		return resp, nil
	}

	_, err := r.RecursiveLookup("loop.test", dnsmsg.TypeA)
	if err != nil {
		t.Fatalf("expected no error on cap exhaustion, got %v", err)
	}
	if calls != MaxIterations {
		t.Errorf("expected exactly MaxIterations (%d) queries, got %d", MaxIterations, calls)
	}
}
