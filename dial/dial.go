// Package dial parses 9P dial strings and opens connections and
// listeners from them.
package dial

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"aqwari.net/retry"
	"github.com/pkg/errors"
)

// Addr is a parsed 9P dial string: protocol ! host ! port.
type Addr struct {
	Network string // "tcp" or "unix"
	Host    string // hostname, IP, or (for unix) socket path
	Port    string // numeric port; empty for unix
}

// wellKnownPorts maps the service names a dial string's port field may
// carry to the fixed numeric port they resolve to.
var wellKnownPorts = map[string]string{
	"9fs":        "564",
	"9pfs":       "564",
	"rendezvous": "17007",
}

func (a Addr) String() string {
	if a.Network == "unix" {
		return fmt.Sprintf("unix!%s", a.Host)
	}
	return fmt.Sprintf("%s!%s!%s", a.Network, a.Host, a.Port)
}

// addr returns the net.Dial/net.Listen address string for a. The
// Plan 9 "listen on any interface" host "*" becomes the empty host
// string the net package expects.
func (a Addr) addr() string {
	if a.Network == "unix" {
		return a.Host
	}
	host := a.Host
	if host == "*" {
		host = ""
	}
	return net.JoinHostPort(host, a.Port)
}

// Parse parses a dial string of the form "protocol!host!port". Either
// or both of protocol and port may be omitted (leaving consecutive or
// trailing "!" separators), in which case defaultNetwork and
// defaultPort fill the gap. For the unix protocol, the port field, if
// present, is ignored; the host field is the socket path.
//
// Port may be given as a decimal number or as one of the service names
// 9fs, 9pfs, or rendezvous, each of which resolves to a fixed port.
func Parse(dialString, defaultNetwork, defaultPort string) (Addr, error) {
	fields := strings.Split(dialString, "!")
	if len(fields) > 3 {
		return Addr{}, errors.Errorf("dial: malformed dial string %q", dialString)
	}

	var network, host, port string
	switch len(fields) {
	case 1:
		network, host = defaultNetwork, fields[0]
		port = defaultPort
	case 2:
		network, host = fields[0], fields[1]
		port = defaultPort
	case 3:
		network, host, port = fields[0], fields[1], fields[2]
	}
	if network == "" {
		network = defaultNetwork
	}
	if port == "" {
		port = defaultPort
	}
	if host == "" {
		return Addr{}, errors.Errorf("dial: missing host in dial string %q", dialString)
	}

	switch network {
	case "tcp":
		resolved, err := resolvePort(port)
		if err != nil {
			return Addr{}, errors.Wrapf(err, "dial: %q", dialString)
		}
		return Addr{Network: "tcp", Host: host, Port: resolved}, nil
	case "unix":
		return Addr{Network: "unix", Host: host}, nil
	default:
		return Addr{}, errors.Errorf("dial: unknown protocol %q in dial string %q", network, dialString)
	}
}

func resolvePort(port string) (string, error) {
	if p, ok := wellKnownPorts[port]; ok {
		return p, nil
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", errors.Errorf("invalid port %q", port)
	}
	return port, nil
}

// Dial connects to the server named by dialString, using defaultNetwork
// and defaultPort to fill in any fields the dial string omits.
func Dial(ctx context.Context, dialString, defaultNetwork, defaultPort string) (net.Conn, error) {
	addr, err := Parse(dialString, defaultNetwork, defaultPort)
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, addr.Network, addr.addr())
	if err != nil {
		return nil, errors.Wrapf(err, "dial: connect to %s", addr)
	}
	return conn, nil
}

// Listen opens a listener at the address named by dialString. If the
// initial bind fails with a temporary error, Listen retries with
// exponential backoff, starting at 10ms and capping at 2s, for up to
// maxRetries attempts before giving up.
func Listen(dialString, defaultNetwork, defaultPort string, maxRetries int) (net.Listener, error) {
	addr, err := Parse(dialString, defaultNetwork, defaultPort)
	if err != nil {
		return nil, err
	}

	backoff := retry.Exponential(10 * time.Millisecond).Max(2 * time.Second)
	var lastErr error
	for try := 0; try <= maxRetries; try++ {
		l, err := net.Listen(addr.Network, addr.addr())
		if err == nil {
			return l, nil
		}
		lastErr = err
		type temporary interface {
			Temporary() bool
		}
		te, ok := err.(temporary)
		if !ok || !te.Temporary() || try == maxRetries {
			break
		}
		time.Sleep(backoff(try + 1))
	}
	return nil, errors.Wrapf(lastErr, "dial: listen on %s", addr)
}
