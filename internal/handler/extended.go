package handler

import (
	"context"
	"errors"

	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
)

// Extended dispatches extended operations by OID. StartTLS is the only
// one the core server understands; any other OID is PROTOCOL_ERROR.
func (h *Handler) Extended(ctx context.Context, conn *session.Conn, msg *ldap.Message, req *ldap.ExtendedRequest) {
	switch req.Name {
	case ldap.OIDStartTLS:
		h.startTLS(conn, msg)
	default:
		res := &ldap.ExtendedResult{
			Result: ldap.Result{
				ResultCode:        ldap.ResultProtocolError,
				DiagnosticMessage: "the requested extended operation is not supported",
			},
		}
		conn.SendResult(msg.MessageID, nil, ldap.TypeExtendedResponseOp, res)
	}
}

func (h *Handler) startTLS(conn *session.Conn, msg *ldap.Message) {
	res := ldap.ExtendedResult{
		Result:       ldap.Result{ResultCode: ldap.ResultSuccess},
		ResponseName: ldap.OIDStartTLS,
	}
	err := conn.StartTLS()
	switch {
	case err == nil:
	case errors.Is(err, session.ErrTLSNotAvailable):
		res.ResultCode = ldap.ResultUnwillingToPerform
		res.DiagnosticMessage = "TLS is not available on this listener"
	case errors.Is(err, session.ErrTLSAlreadySetUp):
		res.ResultCode = ldap.ResultOperationsError
		res.DiagnosticMessage = "TLS is already set up on this connection"
	default:
		h.Logger.Warn().Err(err).Msg("StartTLS failed, closing connection")
		conn.Close()
		return
	}
	conn.SendResult(msg.MessageID, nil, ldap.TypeExtendedResponseOp, &res)
}
