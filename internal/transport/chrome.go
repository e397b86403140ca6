// Package transport provides an http.RoundTripper whose TLS handshake looks
// like the desktop browser the client impersonates.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Persona names accepted by New.
const (
	PersonaChrome  = "chrome"
	PersonaFirefox = "firefox"
	PersonaNone    = ""
)

// BrowserTransport dials one connection per request with a parroted
// ClientHello and speaks h2 or http/1.1, whichever ALPN settles on. Plain
// http requests go through Fallback.
type BrowserTransport struct {
	Hello    utls.ClientHelloID
	Dialer   *net.Dialer
	Fallback http.RoundTripper

	h2 *http2.Transport
}

// New returns a RoundTripper for persona. PersonaNone yields a stdlib
// transport.
func New(persona string) (http.RoundTripper, error) {
	std := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        16,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	var hello utls.ClientHelloID
	switch persona {
	case PersonaNone:
		return std, nil
	case PersonaChrome:
		hello = utls.HelloChrome_Auto
	case PersonaFirefox:
		hello = utls.HelloFirefox_Auto
	default:
		return nil, fmt.Errorf("unknown tls persona %q", persona)
	}
	return &BrowserTransport{
		Hello:    hello,
		Dialer:   &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second},
		Fallback: std,
		h2:       &http2.Transport{},
	}, nil
}

func (t *BrowserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.Fallback.RoundTrip(req)
	}

	conn, err := t.dial(req.Context(), req.URL.Hostname(), req.URL.Port())
	if err != nil {
		return nil, err
	}

	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		cc, err := t.h2.NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		resp, err := cc.RoundTrip(req)
		if err != nil {
			cc.Close()
			return nil, err
		}
		resp.Body = &closingBody{ReadCloser: resp.Body, close: cc.Close}
		return resp, nil
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, err
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, err
	}
	resp.Body = &closingBody{ReadCloser: resp.Body, close: conn.Close}
	return resp, nil
}

func (t *BrowserTransport) dial(ctx context.Context, host, port string) (*utls.UConn, error) {
	if port == "" {
		port = "443"
	}
	raw, err := t.Dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}

	uconn := utls.UClient(raw, &utls.Config{ServerName: host}, t.Hello)
	if err := uconn.Handshake(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake %s: %w", host, err)
	}
	return uconn, nil
}

type closingBody struct {
	io.ReadCloser
	close func() error
}

func (b *closingBody) Close() error {
	err := b.ReadCloser.Close()
	if cerr := b.close(); err == nil {
		err = cerr
	}
	return err
}
