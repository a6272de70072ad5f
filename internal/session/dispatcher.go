package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/MultifactorLab/MultiDirectory/internal/ber"
	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
)

// Handler is the request-processing surface a Dispatcher drives. It mirrors
// RFC 4511's operations one-to-one; package handler provides the directory-
// backed implementation.
type Handler interface {
	Abandon(ctx context.Context, conn *Conn, msg *ldap.Message, target ldap.MessageID)
	Add(ctx context.Context, conn *Conn, msg *ldap.Message, req *ldap.AddRequest)
	Bind(ctx context.Context, conn *Conn, msg *ldap.Message, req *ldap.BindRequest)
	Compare(ctx context.Context, conn *Conn, msg *ldap.Message, req *ldap.CompareRequest)
	Delete(ctx context.Context, conn *Conn, msg *ldap.Message, dn string)
	Extended(ctx context.Context, conn *Conn, msg *ldap.Message, req *ldap.ExtendedRequest)
	Modify(ctx context.Context, conn *Conn, msg *ldap.Message, req *ldap.ModifyRequest)
	ModifyDN(ctx context.Context, conn *Conn, msg *ldap.Message, req *ldap.ModifyDNRequest)
	Search(ctx context.Context, conn *Conn, msg *ldap.Message, req *ldap.SearchRequest)
	Other(ctx context.Context, conn *Conn, msg *ldap.Message)
}

// WorkerCount is the default number of worker goroutines a Dispatcher runs
// per connection (one reader, N workers).
const WorkerCount = 3

// Dispatcher reads framed messages off a Conn and fans them out to a fixed
// pool of worker goroutines over an unbuffered channel: the reader hands
// each message to the next free worker and blocks while every worker is
// busy, so no requests are queued in memory. Ordering is preserved
// within a single message ID (its whole handling runs on one worker) but
// not across different message IDs, which may be handled concurrently by
// different workers.
type Dispatcher struct {
	Handler Handler
	Workers int
	Logger  zerolog.Logger
}

type job struct {
	msg *ldap.Message
}

// Run drives conn until the connection closes or ctx is cancelled. It
// returns once the reader and every worker have exited.
func (d *Dispatcher) Run(ctx context.Context, conn *Conn) {
	workers := d.Workers
	if workers <= 0 {
		workers = WorkerCount
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan job)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			d.work(ctx, conn, queue)
		}()
	}

	d.read(ctx, conn, queue)
	close(queue)
	wg.Wait()
}

func (d *Dispatcher) read(ctx context.Context, conn *Conn, queue chan<- job) {
	for {
		if conn.Closed() || ctx.Err() != nil {
			return
		}
		msg, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, syscall.Errno(0x2746)) {
				d.Logger.Debug().Msg("connection reset by client")
			} else if !errors.Is(err, net.ErrClosed) {
				d.Logger.Debug().Err(err).Msg("reading LDAP message, closing connection")
			}
			conn.Close()
			return
		}
		select {
		case queue <- job{msg: msg}:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) work(ctx context.Context, conn *Conn, queue <-chan job) {
	for j := range queue {
		d.handle(ctx, conn, j.msg)
	}
}

func (d *Dispatcher) handle(ctx context.Context, conn *Conn, msg *ldap.Message) {
	defer conn.forget(msg.MessageID)

	switch msg.ProtocolOp.Type {
	case ldap.TypeAbandonRequestOp:
		n, err := ber.GetInteger(msg.ProtocolOp.Data)
		if err != nil || n < 0 || n > ber.MaxInt {
			d.Logger.Debug().Err(err).Msg("invalid abandon request")
			return
		}
		d.Handler.Abandon(ctx, conn, msg, ldap.MessageID(n))
	case ldap.TypeAddRequestOp:
		req, err := ldap.GetAddRequest(msg.ProtocolOp.Data)
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, ldap.ProtocolError)
			return
		}
		d.Handler.Add(ctx, conn, msg, req)
	case ldap.TypeBindRequestOp:
		req, err := ldap.GetBindRequest(msg.ProtocolOp.Data)
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeBindResponseOp, ldap.ProtocolError)
			return
		}
		d.Handler.Bind(ctx, conn, msg, req)
	case ldap.TypeCompareRequestOp:
		req, err := ldap.GetCompareRequest(msg.ProtocolOp.Data)
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeCompareResponseOp, ldap.ProtocolError)
			return
		}
		d.Handler.Compare(ctx, conn, msg, req)
	case ldap.TypeDeleteRequestOp:
		d.Handler.Delete(ctx, conn, msg, ber.GetOctetString(msg.ProtocolOp.Data))
	case ldap.TypeExtendedRequestOp:
		req, err := ldap.GetExtendedRequest(msg.ProtocolOp.Data)
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeExtendedResponseOp, &ldap.ExtendedResult{Result: *ldap.ProtocolError})
			return
		}
		d.Handler.Extended(ctx, conn, msg, req)
	case ldap.TypeModifyRequestOp:
		req, err := ldap.GetModifyRequest(msg.ProtocolOp.Data)
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, ldap.ProtocolError)
			return
		}
		d.Handler.Modify(ctx, conn, msg, req)
	case ldap.TypeModifyDNRequestOp:
		req, err := ldap.GetModifyDNRequest(msg.ProtocolOp.Data)
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, ldap.ProtocolError)
			return
		}
		d.Handler.ModifyDN(ctx, conn, msg, req)
	case ldap.TypeSearchRequestOp:
		req, err := ldap.GetSearchRequest(msg.ProtocolOp.Data)
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, ldap.ProtocolError)
			return
		}
		d.Handler.Search(ctx, conn, msg, req)
	case ldap.TypeUnbindRequestOp:
		conn.Close()
	default:
		d.Handler.Other(ctx, conn, msg)
	}
}
