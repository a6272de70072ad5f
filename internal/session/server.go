package session

import (
	"context"
	"crypto/tls"
	"errors"
	"net"

	"github.com/rs/zerolog"
)

// Server accepts connections and runs a Dispatcher over each one.
type Server struct {
	Dispatcher *Dispatcher
	TLSConfig  *tls.Config
	Logger     zerolog.Logger

	listener net.Listener
	done     chan struct{}
}

// NewServer builds a Server that dispatches accepted connections to handler
// via a worker pool of workers goroutines (0 selects the default).
func NewServer(handler Handler, workers int, logger zerolog.Logger) *Server {
	return &Server{
		Dispatcher: &Dispatcher{Handler: handler, Workers: workers, Logger: logger},
		Logger:     logger,
		done:       make(chan struct{}),
	}
}

// ListenAndServe accepts plaintext connections; StartTLS remains available
// if s.TLSConfig is set.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// ListenAndServeTLS accepts only TLS connections (implicit LDAPS).
func (s *Server) ListenAndServeTLS(ctx context.Context, address string) error {
	if s.TLSConfig == nil {
		return errors.New("session: ListenAndServeTLS requires TLSConfig")
	}
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, tls.NewListener(listener, s.TLSConfig))
}

// Serve runs the accept loop until Shutdown is called or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.listener = listener
	defer func() { s.done <- struct{}{} }()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		c, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Logger.Warn().Err(err).Msg("accept error")
			continue
		}
		go s.handleConnection(ctx, c)
	}
}

// Shutdown stops accepting and waits for the accept loop to exit.
func (s *Server) Shutdown() {
	if s.listener == nil {
		return
	}
	s.listener.Close()
	<-s.done
}

func (s *Server) handleConnection(ctx context.Context, c net.Conn) {
	defer c.Close()
	_, implicit := c.(*tls.Conn)
	conn := NewConn(c, s.TLSConfig, implicit)
	s.Dispatcher.Run(ctx, conn)
}
