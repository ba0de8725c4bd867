//go:build windows

package resolver

import "errors"

func setReusePort(fd uintptr) error {
	return errors.New("resolver: SO_REUSEPORT is not supported on windows")
}
