// Package netctx resolves the addresses the rest of the system binds to and
// advertises: the LAN-reachable bind address (never 0.0.0.0, which Sonos
// devices can't dial back to), and the HTTP/GENA-callback ports actually in
// use after fallback.
package netctx

import (
	"fmt"
	"net"
)

// Context carries the addresses other components need to build URLs that a
// Sonos speaker on the LAN can actually reach.
type Context struct {
	BindIP       string
	StreamPort   int
	CallbackPort int
}

// StreamURL builds the HTTP stream URL for a given stream id and extension.
func (c Context) StreamURL(streamID, ext string) string {
	return fmt.Sprintf("http://%s:%d/stream/%s.%s", c.BindIP, c.StreamPort, streamID, ext)
}

// CallbackHost returns the host:port GENA subscriptions advertise in their
// CALLBACK header; the per-subscription token path is appended by the
// subscription manager.
func (c Context) CallbackHost() string {
	return fmt.Sprintf("%s:%d", c.BindIP, c.CallbackPort)
}

// Resolve picks the LAN-reachable local IP (by dialing out on a UDP socket,
// which never actually sends a packet but forces the OS to pick a route) and
// binds listeners for the stream and callback ports, falling back to any
// free port when the preferred one is taken.
func Resolve(preferredStreamPort, preferredCallbackPort int) (Context, net.Listener, net.Listener, error) {
	ip, err := discoverLANIP()
	if err != nil {
		return Context{}, nil, nil, fmt.Errorf("resolve LAN IP: %w", err)
	}

	streamListener, streamPort, err := listenWithFallback(preferredStreamPort)
	if err != nil {
		return Context{}, nil, nil, fmt.Errorf("bind stream port: %w", err)
	}

	callbackListener, callbackPort, err := listenWithFallback(preferredCallbackPort)
	if err != nil {
		streamListener.Close()
		return Context{}, nil, nil, fmt.Errorf("bind callback port: %w", err)
	}

	return Context{
		BindIP:       ip,
		StreamPort:   streamPort,
		CallbackPort: callbackPort,
	}, streamListener, callbackListener, nil
}

// discoverLANIP finds the local address the OS would use to reach the
// public internet, which on a home network is the LAN-facing interface
// address Sonos speakers can dial back to. No packet is actually sent.
func discoverLANIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type %T", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}

func listenWithFallback(preferredPort int) (net.Listener, int, error) {
	if preferredPort > 0 {
		if l, err := net.Listen("tcp", fmt.Sprintf(":%d", preferredPort)); err == nil {
			return l, preferredPort, nil
		}
	}
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, 0, err
	}
	return l, l.Addr().(*net.TCPAddr).Port, nil
}
