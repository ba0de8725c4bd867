// Package config reads the resolver's runtime configuration from the
// environment, following the same plain os.Getenv-with-inline-default
// idiom the rest of this codebase uses instead of a flags/Viper layer.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything cmd/resolver needs to start the server.
type Config struct {
	// DNSAddr is the local UDP address to listen on.
	DNSAddr string
	// MetricsAddr serves /metrics for Prometheus scraping.
	MetricsAddr string
	// Recursive selects the recursive walk instead of the fixed upstream.
	Recursive bool
	// Upstream is the fixed forwarder used when Recursive is false.
	Upstream string
	// ReadTimeout bounds each outbound UDP query (lookup and recursive walk).
	ReadTimeout time.Duration
	// ReusePort enables SO_REUSEPORT on the listening socket.
	ReusePort bool

	// RateLimitRate and RateLimitBurst configure the token bucket; a rate
	// of 0 disables rate limiting entirely.
	RateLimitRate  float64
	RateLimitBurst int
	// RedisAddr, when set, backs the rate limiter with Redis instead of
	// the in-memory bucket, so limits are shared across resolver instances.
	RedisAddr string

	// AnycastEnabled turns on BGP route announcement for a shared VIP.
	AnycastEnabled bool
	AnycastVIP     string
	AnycastIface   string
	BGPRouterID    string
	BGPPeerIP      string
	BGPNextHop     string
	BGPLocalASN    uint32
	BGPPeerASN     uint32
}

// FromEnv builds a Config from the process environment, applying the same
// defaults a developer running this locally would expect.
func FromEnv() Config {
	cfg := Config{
		DNSAddr:        getEnv("DNS_ADDR", "127.0.0.1:10053"),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9153"),
		Recursive:      getEnv("RESOLVER_MODE", "forward") == "recursive",
		Upstream:       getEnv("UPSTREAM_ADDR", "9.9.9.9:53"),
		ReadTimeout:    getEnvDuration("READ_TIMEOUT", 5*time.Second),
		ReusePort:      getEnv("REUSE_PORT", "") == "true",
		RateLimitRate:  getEnvFloat("RATE_LIMIT_RATE", 2000),
		RateLimitBurst: int(getEnvUint32("RATE_LIMIT_BURST", 1000)),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		AnycastEnabled: getEnv("ANYCAST_ENABLED", "") == "true",
		AnycastVIP:     getEnv("ANYCAST_VIP", ""),
		AnycastIface:   getEnv("ANYCAST_INTERFACE", "lo"),
		BGPRouterID:    getEnv("BGP_ROUTER_ID", ""),
		BGPPeerIP:      getEnv("BGP_PEER_IP", ""),
		BGPNextHop:     getEnv("BGP_NEXT_HOP", ""),
		BGPLocalASN:    getEnvUint32("ANYCAST_LOCAL_ASN", 65001),
		BGPPeerASN:     getEnvUint32("BGP_PEER_ASN", 65000),
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvUint32(key string, def uint32) uint32 {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	u, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return def
	}
	return uint32(u)
}

func getEnvFloat(key string, def float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
