package handler

import (
	"context"

	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
)

// Delete removes a leaf Directory entry. An entry with children is
// rejected with NOT_ALLOWED_ON_NON_LEAF per RFC 4511 §4.8; the client must
// delete the subtree bottom-up itself.
func (h *Handler) Delete(ctx context.Context, conn *session.Conn, msg *ldap.Message, dn string) {
	if _, bound := identityOf(conn); !bound {
		conn.SendResult(msg.MessageID, nil, ldap.TypeDeleteResponseOp, resultErr(ldap.ResultInsufficientAccessRights, "bind required"))
		return
	}

	components, err := dnToComponents(dn)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeDeleteResponseOp, resultErr(ldap.ResultInvalidDNSyntax, "malformed entry DN"))
		return
	}

	uow, err := h.Store.Begin(ctx)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeDeleteResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
		return
	}
	defer uow.Rollback(ctx)

	entry, err := uow.GetByPath(ctx, components)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeDeleteResponseOp, resultErr(ldap.ResultNoSuchObject, "no such object"))
		return
	}

	if err := uow.DeleteEntry(ctx, entry.ID); err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeDeleteResponseOp, resultErr(storeErrCode(err), err.Error()))
		return
	}
	if err := uow.Commit(ctx); err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeDeleteResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
		return
	}
	conn.SendResult(msg.MessageID, nil, ldap.TypeDeleteResponseOp, h.successResult(ctx))
}
