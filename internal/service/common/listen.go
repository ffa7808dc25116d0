//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoListenAddress indicates missing listen configuration.
var ErrNoListenAddress = errors.New("no listen address configured")

// ResolveListenAddress determines the address to bind.
// If override is provided, uses it directly. Otherwise extracts the port from
// configAddr and binds on all interfaces (e.g. "alerts.example.com:8080" -> ":8080").
func ResolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoListenAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address format %q: %w", configAddr, err)
	}

	return ":" + port, nil
}
