package routing

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"runtime"
	"strings"
)

// commandExecutor runs an external command and returns its combined output.
// SystemVIPAdapter depends on this interface rather than os/exec directly so
// tests can substitute a fake shell.
type commandExecutor interface {
	Run(ctx context.Context, name string, arg ...string) ([]byte, error)
}

// execExecutor runs commands via os/exec.
type execExecutor struct{}

func (execExecutor) Run(ctx context.Context, name string, arg ...string) ([]byte, error) {
	// #nosec G204
	return exec.CommandContext(ctx, name, arg...).CombinedOutput()
}

// SystemVIPAdapter implements the VIPManager port by executing system commands
// to bind/unbind IP addresses to local interfaces.
type SystemVIPAdapter struct {
	logger   *slog.Logger
	executor commandExecutor
	os       string
}

// NewSystemVIPAdapter initializes a new SystemVIPAdapter.
func NewSystemVIPAdapter(logger *slog.Logger) *SystemVIPAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemVIPAdapter{
		logger:   logger,
		executor: execExecutor{},
		os:       runtime.GOOS,
	}
}

// Bind attaches a VIP to the specified interface.
func (a *SystemVIPAdapter) Bind(ctx context.Context, vip, iface string) error {
	if net.ParseIP(vip) == nil {
		return fmt.Errorf("invalid VIP address: %s", vip)
	}
	if iface == "" {
		return fmt.Errorf("interface name cannot be empty")
	}

	var output []byte
	var err error
	switch a.os {
	case "linux":
		// ip addr add 1.1.1.1/32 dev lo
		output, err = a.executor.Run(ctx, "ip", "addr", "add", vip+"/32", "dev", iface)
	case "darwin":
		// ifconfig lo0 alias 1.1.1.1 255.255.255.255
		output, err = a.executor.Run(ctx, "ifconfig", iface, "alias", vip, "255.255.255.255")
	default:
		return a.handleUnsupportedOS()
	}

	if err != nil {
		outStr := string(output)
		// Check for common "already exists" errors to make it idempotent
		if strings.Contains(outStr, "File exists") || strings.Contains(outStr, "already bound") {
			a.logger.Info("VIP already bound", "vip", vip, "iface", iface)
			return nil
		}
		a.logger.Warn("VIP bind command failed", "error", err, "vip", vip, "output", outStr)
		return fmt.Errorf("failed to bind VIP: %w (output: %s)", err, outStr)
	}

	a.logger.Info("bound VIP to interface", "vip", vip, "iface", iface)
	return nil
}

// Unbind removes a VIP from the specified interface.
func (a *SystemVIPAdapter) Unbind(ctx context.Context, vip, iface string) error {
	if net.ParseIP(vip) == nil {
		return fmt.Errorf("invalid VIP address: %s", vip)
	}
	if iface == "" {
		return fmt.Errorf("interface name cannot be empty")
	}

	var output []byte
	var err error
	switch a.os {
	case "linux":
		output, err = a.executor.Run(ctx, "ip", "addr", "del", vip+"/32", "dev", iface)
	case "darwin":
		output, err = a.executor.Run(ctx, "ifconfig", iface, "-alias", vip)
	default:
		return a.handleUnsupportedOS()
	}

	if err != nil {
		outStr := string(output)
		a.logger.Warn("VIP unbind command finished with error", "error", err, "vip", vip, "output", outStr)
		return fmt.Errorf("failed to unbind VIP: %w (output: %s)", err, outStr)
	}

	a.logger.Info("unbound VIP from interface", "vip", vip, "iface", iface)
	return nil
}

func (a *SystemVIPAdapter) handleUnsupportedOS() error {
	goos := a.os
	if goos == "" {
		goos = runtime.GOOS
	}
	return fmt.Errorf("unsupported OS for VIP management: %s", goos)
}

var _ VIPManager = (*SystemVIPAdapter)(nil)
