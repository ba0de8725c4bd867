// Command resolver runs the stub DNS resolver: a sequential UDP listener
// that either forwards every query to a fixed upstream or walks the
// delegation chain itself, answering in classic 512-byte wire format.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpolden/stubdns/internal/anycast"
	"github.com/mpolden/stubdns/internal/config"
	"github.com/mpolden/stubdns/internal/dnsmsg"
	"github.com/mpolden/stubdns/internal/resolver"
	"github.com/mpolden/stubdns/internal/routing"
)

func main() {
	fixture := flag.String("fixture", "", "decode and print a raw DNS message capture from the given file, then exit")
	reuseport := flag.Bool("reuseport", false, "set SO_REUSEPORT on the listening socket (also enabled by REUSE_PORT=true)")
	flag.Parse()

	if *fixture != "" {
		if err := dumpFixture(*fixture); err != nil {
			slog.Error("fixture decode failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *reuseport); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

// dumpFixture loads a raw, classic 512-byte DNS message capture from path,
// decodes it, and pretty-prints the header, question, and every record
// section to stdout using the text handler (legible on a terminal, unlike
// the JSON handler the server itself logs with).
func dumpFixture(path string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	buf := dnsmsg.NewBuffer()
	buf.Load(data)
	pkt := dnsmsg.NewPacket()
	if err := pkt.FromBuffer(buf); err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}

	h := pkt.Header
	logger.Info("header",
		"id", h.ID,
		"response", h.Response,
		"opcode", h.Opcode,
		"rcode", h.ResponseCode.String(),
		"rd", h.RecursionDesired,
		"ra", h.RecursionAvailable,
		"qdcount", len(pkt.Questions),
		"ancount", len(pkt.Answers),
		"nscount", len(pkt.Authorities),
		"arcount", len(pkt.Additionals),
	)
	for _, q := range pkt.Questions {
		logger.Info("question", "name", q.Name, "type", q.Type.String())
	}
	for _, r := range pkt.Answers {
		logger.Info("answer", "record", fmt.Sprintf("%+v", r))
	}
	for _, r := range pkt.Authorities {
		logger.Info("authority", "record", fmt.Sprintf("%+v", r))
	}
	for _, r := range pkt.Additionals {
		logger.Info("additional", "record", fmt.Sprintf("%+v", r))
	}
	return nil
}

func run(ctx context.Context, reuseport bool) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.FromEnv()

	mode := resolver.ModeForward
	if cfg.Recursive {
		mode = resolver.ModeRecursive
	}

	srv := resolver.NewServer(cfg.DNSAddr, cfg.Upstream, mode, logger)
	srv.ReusePort = cfg.ReusePort || reuseport
	srv.Resolver.Timeout = cfg.ReadTimeout
	srv.Limiter = newLimiter(cfg, logger)

	var routingAdapter *routing.GoBGPAdapter
	var anycastMgr *anycast.Manager

	if cfg.AnycastEnabled {
		if cfg.AnycastVIP == "" || cfg.BGPPeerIP == "" {
			return fmt.Errorf("ANYCAST_VIP and BGP_PEER_IP must be set when ANYCAST_ENABLED=true")
		}

		routingAdapter = routing.NewGoBGPAdapter(logger)
		vipAdapter := routing.NewSystemVIPAdapter(logger)
		routingAdapter.SetConfig(cfg.BGPRouterID, 179, cfg.BGPNextHop)

		health := &resolverHealthChecker{resolver: srv.Resolver, mode: mode, upstream: cfg.Upstream}
		anycastMgr = anycast.NewManager(health, routingAdapter, vipAdapter, cfg.AnycastVIP, cfg.AnycastIface, 10*time.Second, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := routingAdapter.Start(ctx, cfg.BGPLocalASN, cfg.BGPPeerASN, cfg.BGPPeerIP); err != nil {
				errCh <- fmt.Errorf("failed to start BGP speaker: %w", err)
				return
			}
			anycastMgr.Start(ctx)
		}()

		select {
		case err := <-errCh:
			return err
		case <-time.After(500 * time.Millisecond):
		}
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("DNS server failed", "error", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("stub resolver starting",
		"dns_addr", cfg.DNSAddr,
		"metrics_addr", cfg.MetricsAddr,
		"mode", modeName(mode),
	)

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}
	if err := srv.Close(); err != nil {
		logger.Error("DNS server close failed", "error", err)
	}
	if routingAdapter != nil {
		if err := routingAdapter.Stop(); err != nil {
			logger.Error("BGP speaker stop failed", "error", err)
		}
	}

	return nil
}

func newLimiter(cfg config.Config, logger *slog.Logger) resolver.Limiter {
	if cfg.RateLimitRate <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		logger.Info("rate limiting via redis", "addr", cfg.RedisAddr)
		return resolver.NewRedisLimiter(cfg.RedisAddr, int64(cfg.RateLimitRate), time.Second)
	}
	logger.Info("rate limiting in-memory", "rate", cfg.RateLimitRate, "burst", cfg.RateLimitBurst)
	return resolver.NewMemoryLimiter(cfg.RateLimitRate, cfg.RateLimitBurst)
}

func modeName(m resolver.Mode) string {
	if m == resolver.ModeRecursive {
		return "recursive"
	}
	return "forward"
}

// resolverHealthChecker reports a resolver unhealthy when it can no longer
// resolve a well-known name, so the anycast manager withdraws the VIP
// instead of advertising a node that can't actually serve answers.
type resolverHealthChecker struct {
	resolver *resolver.Resolver
	mode     resolver.Mode
	upstream string
}

func (h *resolverHealthChecker) Healthy(_ context.Context) bool {
	const probeName = "l.root-servers.net."
	var err error
	if h.mode == resolver.ModeRecursive {
		_, err = h.resolver.RecursiveLookup(probeName, dnsmsg.TypeA)
	} else {
		_, err = h.resolver.Lookup(probeName, dnsmsg.TypeA, h.upstream)
	}
	return err == nil
}
