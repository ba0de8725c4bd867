package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mpolden/stubdns/internal/dnsmsg"
	"github.com/mpolden/stubdns/internal/metrics"
)

// Mode selects how Server resolves an inbound question.
type Mode int

const (
	// ModeForward sends every query to a single fixed upstream.
	ModeForward Mode = iota
	// ModeRecursive walks the delegation chain from the root hints.
	ModeRecursive
)

// Limiter admits or rejects a query from a client address. Both
// implementations live in this package: MemoryLimiter (in-memory) and
// RedisLimiter (Redis-backed).
type Limiter interface {
	Allow(addr string) bool
}

// Server answers inbound DNS queries on a single UDP socket, resolving each
// one sequentially before accepting the next.
type Server struct {
	Addr     string
	Upstream string
	Mode     Mode
	Resolver *Resolver
	Limiter  Limiter
	Logger   *slog.Logger

	// ReusePort enables SO_REUSEPORT; see listenPacket. Off by default.
	ReusePort bool

	conn net.PacketConn
}

// NewServer returns a Server bound to addr (not yet listening) that forwards
// to upstream unless mode is ModeRecursive.
func NewServer(addr, upstream string, mode Mode, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Addr:     addr,
		Upstream: upstream,
		Mode:     mode,
		Resolver: New(logger),
		Logger:   logger,
	}
}

// listenPacket binds the UDP socket, setting SO_REUSEPORT first when
// s.ReusePort is set so several Server instances (typically one per CPU)
// can share the port and let the kernel load-balance datagrams between them.
func (s *Server) listenPacket() (net.PacketConn, error) {
	if !s.ReusePort {
		return net.ListenPacket("udp", s.Addr)
	}
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				ctrlErr = setReusePort(fd)
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}
	return lc.ListenPacket(context.Background(), "udp", s.Addr)
}

// ListenAndServe binds the UDP socket and serves queries until the socket is
// closed or a fatal error occurs. Each datagram, including every upstream
// query it triggers, is fully handled before the next ReadFrom call: there
// is no internal concurrency here by design, matching the single-threaded,
// strictly sequential contract the forwarder and recursive walk both run
// under.
func (s *Server) ListenAndServe() error {
	conn, err := s.listenPacket()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUDPBindFailed, err)
	}
	s.conn = conn
	defer conn.Close()

	s.Logger.Info("stub resolver listening", "addr", s.Addr, "mode", s.modeName())

	buf := make([]byte, dnsmsg.PacketSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUDPRecvFailed, err)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		s.handleQuery(conn, addr, data)
	}
}

// Close stops the server's listener, if running.
func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Server) modeName() string {
	if s.Mode == ModeRecursive {
		return "recursive"
	}
	return "forward"
}

// handleQuery implements the inbound handler: decode the request, resolve
// its single question, and send a response packet back to src.
func (s *Server) handleQuery(conn net.PacketConn, src net.Addr, data []byte) {
	correlationID := uuid.NewString()
	log := s.Logger.With("request_id", correlationID, "src", src.String())

	if s.Limiter != nil && !s.Limiter.Allow(src.String()) {
		log.Warn("query dropped by rate limiter")
		metrics.RateLimitDropped.Inc()
		return
	}

	start := time.Now()

	reqBuf := dnsmsg.NewBuffer()
	reqBuf.Load(data)
	req := dnsmsg.NewPacket()
	if err := req.FromBuffer(reqBuf); err != nil {
		log.Warn("failed to decode inbound packet", "error", err)
		return
	}

	resp := dnsmsg.NewPacket()
	resp.Header.ID = req.Header.ID
	resp.Header.RecursionDesired = true
	resp.Header.RecursionAvailable = true
	resp.Header.Response = true

	if len(req.Questions) == 0 {
		resp.Header.ResponseCode = dnsmsg.RcodeFormErr
		s.reply(conn, src, resp, log)
		return
	}

	q := req.Questions[0]
	log = log.With("name", q.Name, "type", q.Type.String())

	result, err := s.resolve(q.Name, q.Type)
	if err != nil {
		log.Error("resolution failed", "error", err)
		resp.AddQuestion(q.Name, q.Type)
		resp.Header.ResponseCode = dnsmsg.RcodeServFail
		s.reply(conn, src, resp, log)
		return
	}

	resp.AddQuestion(q.Name, q.Type)
	resp.Header.ResponseCode = result.Header.ResponseCode
	resp.Answers = append(resp.Answers, result.Answers...)
	resp.Authorities = append(resp.Authorities, result.Authorities...)
	resp.Additionals = append(resp.Additionals, result.Additionals...)

	s.recordMetrics(q.Type, resp.Header.ResponseCode, start)
	s.reply(conn, src, resp, log)
}

func (s *Server) recordMetrics(qtype dnsmsg.RecordType, rcode dnsmsg.ResponseCode, start time.Time) {
	mode := s.modeName()
	metrics.QueriesTotal.WithLabelValues(qtype.String(), rcode.String(), mode).Inc()
	metrics.QueryDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func (s *Server) resolve(name string, qtype dnsmsg.RecordType) (*dnsmsg.Packet, error) {
	if s.Mode == ModeRecursive {
		return s.Resolver.RecursiveLookup(name, qtype)
	}
	return s.Resolver.Lookup(name, qtype, s.Upstream)
}

func (s *Server) reply(conn net.PacketConn, dst net.Addr, resp *dnsmsg.Packet, log *slog.Logger) {
	buf := dnsmsg.NewBuffer()
	if err := resp.Write(buf); err != nil {
		log.Error("failed to encode response", "error", err)
		return
	}
	if _, err := conn.WriteTo(buf.Buf[:buf.Position()], dst); err != nil {
		log.Warn("failed to send response", "error", err)
	}
}
