// Package session turns a raw network connection into an LDAP session:
// message framing, TLS/StartTLS, and the per-connection worker pool that
// dispatches decoded requests to a handler.Handler.
package session

import (
	"bytes"
	"crypto/tls"
	"io"
	"net"
	"sync"

	"github.com/MultifactorLab/MultiDirectory/internal/ber"
	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
)

// Encodable is anything that can render itself as an LDAP protocol-op body.
type Encodable interface {
	Encode() []byte
}

// TLSState reports a Conn's transport security state.
type TLSState int

const (
	TLSStateNone TLSState = iota
	TLSStateStartTLS
	TLSStateImplicit
)

// Conn wraps one accepted connection: its socket, TLS state, bind identity,
// and the bookkeeping needed to serialize writes and to make Abandon
// meaningful.
//
// Bound is set by the Bind handler once authentication succeeds and is the
// server's notion of "this session's directory identity" referenced
// throughout the spec's operation semantics; it is deliberately untyped
// here (any) so package handler owns the concrete identity shape.
type Conn struct {
	Conn      net.Conn
	Peer      net.Addr
	closed    bool
	tlsState  TLSState
	tlsConfig *tls.Config

	tlsStarting sync.Mutex
	sending     sync.Mutex

	Bound any

	mu        sync.Mutex
	cancelled map[ldap.MessageID]bool
}

// NewConn wraps an accepted socket. tlsConfig may be nil to disable
// StartTLS on this listener; implicit is true for a listener that is
// already wrapped in TLS (LDAPS) at accept time.
func NewConn(c net.Conn, tlsConfig *tls.Config, implicit bool) *Conn {
	state := TLSStateNone
	if implicit {
		state = TLSStateImplicit
	}
	return &Conn{
		Conn:      c,
		Peer:      c.RemoteAddr(),
		tlsConfig: tlsConfig,
		tlsState:  state,
		cancelled: make(map[ldap.MessageID]bool),
	}
}

// TLSState reports the connection's current transport security state.
func (c *Conn) TLSState() TLSState { return c.tlsState }

// Close closes the underlying connection and marks it closed so the reader
// loop stops.
func (c *Conn) Close() {
	c.Conn.Close()
	c.closed = true
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool { return c.closed }

// ReadMessage reads one framed LDAPMessage from the connection.
func (c *Conn) ReadMessage() (*ldap.Message, error) {
	return ldap.ReadMessage(c.Conn)
}

// SendMessage writes a fully framed LDAPMessage, holding the write lock for
// the duration so two goroutines never interleave frames on the wire.
func (c *Conn) SendMessage(msg *ldap.Message) error {
	c.tlsStarting.Lock()
	defer c.tlsStarting.Unlock()
	c.sending.Lock()
	defer c.sending.Unlock()
	_, err := io.Copy(c.Conn, bytes.NewReader(msg.EncodeWithHeader()))
	return err
}

// SendResult writes an LDAPResult-shaped response with the given protocol
// op tag.
func (c *Conn) SendResult(messageID ldap.MessageID, controls []ldap.Control, opType ber.Type, res Encodable) error {
	msg := ldap.Message{MessageID: messageID, Controls: controls}
	msg.ProtocolOp.Type = opType
	msg.ProtocolOp.Data = res.Encode()
	return c.SendMessage(&msg)
}

// StartTLS upgrades the connection in place. Returns an error if TLS is
// already active or no TLS config was supplied for this listener.
func (c *Conn) StartTLS() error {
	c.tlsStarting.Lock()
	defer c.tlsStarting.Unlock()
	if c.tlsState != TLSStateNone {
		return ErrTLSAlreadySetUp
	}
	if c.tlsConfig == nil {
		return ErrTLSNotAvailable
	}
	tlsConn := tls.Server(c.Conn, c.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		return err
	}
	c.Conn = tlsConn
	c.tlsState = TLSStateStartTLS
	return nil
}

// Cancel marks a message ID as abandoned. A streaming handler (Search)
// checks Cancelled between emissions and stops early once set.
func (c *Conn) Cancel(id ldap.MessageID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled[id] = true
}

// Cancelled reports whether id has been abandoned.
func (c *Conn) Cancelled(id ldap.MessageID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled[id]
}

// forget drops bookkeeping for a completed message ID.
func (c *Conn) forget(id ldap.MessageID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cancelled, id)
}
