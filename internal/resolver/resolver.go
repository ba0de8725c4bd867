package resolver

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/mpolden/stubdns/internal/dnsmsg"
	"github.com/mpolden/stubdns/internal/metrics"
)

// MaxIterations bounds the recursive state machine's NS-walk loop (suggested
// bound: 16). MaxSubresolutionDepth bounds how deeply Resolver.recurse may
// recurse into itself to resolve an unresolved NS host (suggested bound: 8).
// Both guard against pathological referral cycles; neither is reachable in
// well-formed delegation chains.
const (
	MaxIterations         = 16
	MaxSubresolutionDepth = 8
)

// RootHints lists the IPv4 addresses of the root nameservers, used as the
// recursive walk's starting point.
var RootHints = []string{
	"198.41.0.4",     // a.root-servers.net
	"170.247.170.2",  // b.root-servers.net
	"192.33.4.12",    // c.root-servers.net
	"199.7.91.13",    // d.root-servers.net
	"192.203.230.10", // e.root-servers.net
	"192.5.5.241",    // f.root-servers.net
	"192.112.36.4",   // g.root-servers.net
	"198.97.190.53",  // h.root-servers.net
	"192.36.148.17",  // i.root-servers.net
	"192.58.128.30",  // j.root-servers.net
	"193.0.14.129",   // k.root-servers.net
	"199.7.83.42",    // l.root-servers.net
	"202.12.27.33",   // m.root-servers.net
}

// Resolver performs forwarded and recursive DNS lookups on behalf of the
// server's inbound query handler.
type Resolver struct {
	Logger  *slog.Logger
	Timeout time.Duration

	// queryFn sends one query and returns the decoded response. It defaults
	// to Lookup (real UDP I/O) and is swapped out in tests that want to
	// drive the recursive state machine without a live network.
	queryFn func(qname string, qtype dnsmsg.RecordType, server string) (*dnsmsg.Packet, error)
}

// New returns a Resolver with a 5-second per-query timeout and the given
// logger, defaulting to slog.Default() if logger is nil.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{Logger: logger, Timeout: 5 * time.Second}
	r.queryFn = r.Lookup
	return r
}

func generateTransactionID() uint16 {
	var id uint16
	_ = binary.Read(rand.Reader, binary.BigEndian, &id)
	return id
}

// Lookup constructs a fresh recursion-desired query for (qname, qtype),
// sends it to server over UDP, and decodes the response packet.
func (r *Resolver) Lookup(qname string, qtype dnsmsg.RecordType, server string) (*dnsmsg.Packet, error) {
	conn, err := net.DialTimeout("udp", server, r.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUDPBindFailed, err)
	}
	defer conn.Close()

	req := dnsmsg.NewPacket()
	req.Header.ID = generateTransactionID()
	req.Header.RecursionDesired = true
	req.AddQuestion(qname, qtype)

	buf := dnsmsg.NewBuffer()
	if err := req.Write(buf); err != nil {
		return nil, err
	}

	if _, err := conn.Write(buf.Buf[:buf.Position()]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUDPSendFailed, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(r.Timeout)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUDPRecvFailed, err)
	}
	tmp := make([]byte, dnsmsg.PacketSize)
	n, err := conn.Read(tmp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUDPRecvFailed, err)
	}

	respBuf := dnsmsg.NewBuffer()
	respBuf.Load(tmp[:n])
	resp := dnsmsg.NewPacket()
	if err := resp.FromBuffer(respBuf); err != nil {
		return nil, err
	}
	if resp.Header.ID != req.Header.ID {
		return nil, fmt.Errorf("resolver: transaction ID mismatch: sent %d, got %d", req.Header.ID, resp.Header.ID)
	}
	return resp, nil
}

// RecursiveLookup walks the delegation chain from the root hints down to an
// authoritative answer for (qname, qtype), following NS/glue referrals per
// the resolver's referral-following state machine. It terminates on a
// NOERROR answer, an NXDOMAIN, exhaustion of referrals, or the iteration
// cap, returning the last response seen in every case but the first.
func (r *Resolver) RecursiveLookup(qname string, qtype dnsmsg.RecordType) (*dnsmsg.Packet, error) {
	resp, iterations, err := r.recurse(qname, qtype, RootHints[0], 0)
	metrics.RecursiveIterations.Observe(float64(iterations))
	return resp, err
}

// recurse runs the iterative walk for one (sub-)resolution and reports how
// many iterations it took, so the top-level caller can record it as a
// single observation regardless of how many sub-resolutions ran beneath it.
func (r *Resolver) recurse(qname string, qtype dnsmsg.RecordType, ns string, depth int) (*dnsmsg.Packet, int, error) {
	var resp *dnsmsg.Packet
	var err error
	iterations := 0

	for i := 0; i < MaxIterations; i++ {
		iterations = i + 1
		serverAddr := net.JoinHostPort(ns, "53")
		r.Logger.Info("recursive lookup", "name", qname, "ns", ns, "iteration", i)

		resp, err = r.queryFn(qname, qtype, serverAddr)
		if err != nil {
			r.Logger.Warn("recursive query failed", "ns", ns, "error", err)
			return resp, iterations, err
		}

		if len(resp.Answers) > 0 && resp.Header.ResponseCode == dnsmsg.RcodeNoError {
			return resp, iterations, nil
		}
		if resp.Header.ResponseCode == dnsmsg.RcodeNXDomain {
			return resp, iterations, nil
		}

		if ip, ok := resp.GetResolvedNS(qname); ok {
			ns = ip.String()
			continue
		}

		host, ok := resp.GetUnresolvedNS(qname)
		if !ok {
			return resp, iterations, nil
		}
		if depth >= MaxSubresolutionDepth {
			r.Logger.Warn("sub-resolution depth cap reached", "host", host, "depth", depth)
			return resp, iterations, nil
		}

		sub, _, err := r.recurse(host, dnsmsg.TypeA, RootHints[0], depth+1)
		if err != nil {
			return resp, iterations, nil
		}
		ip, ok := sub.GetRandomA()
		if !ok {
			return resp, iterations, nil
		}
		ns = ip.String()
	}

	return resp, iterations, nil
}
