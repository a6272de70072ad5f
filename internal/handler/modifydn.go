package handler

import (
	"context"

	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
)

// ModifyDN renames and/or relocates an entry, rewriting the Path of the
// entry and every descendant atomically. A collision with an existing
// sibling under the new parent/name is reported as ENTRY_ALREADY_EXISTS.
func (h *Handler) ModifyDN(ctx context.Context, conn *session.Conn, msg *ldap.Message, req *ldap.ModifyDNRequest) {
	if _, bound := identityOf(conn); !bound {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, resultErr(ldap.ResultInsufficientAccessRights, "bind required"))
		return
	}

	components, err := dnToComponents(req.Object)
	if err != nil || len(components) == 0 {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, resultErr(ldap.ResultInvalidDNSyntax, "malformed entry DN"))
		return
	}

	uow, err := h.Store.Begin(ctx)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
		return
	}
	defer uow.Rollback(ctx)

	entry, err := uow.GetByPath(ctx, components)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, resultErr(ldap.ResultNoSuchObject, "no such object"))
		return
	}

	newParentID := *entry.ParentID
	if req.NewSuperior != "" {
		newParentComponents, err := dnToComponents(req.NewSuperior)
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, resultErr(ldap.ResultInvalidDNSyntax, "malformed new superior"))
			return
		}
		newParent, err := uow.GetByPath(ctx, newParentComponents)
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, resultErr(ldap.ResultNoSuchObject, "new superior does not exist"))
			return
		}
		newParentID = newParent.ID
	}

	newName, err := rdnAttributeValue(req.NewRDN)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, resultErr(ldap.ResultInvalidDNSyntax, "malformed new RDN"))
		return
	}

	if err := uow.RenameSubtree(ctx, entry.ID, newParentID, newName); err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, resultErr(storeErrCode(err), err.Error()))
		return
	}

	if req.DeleteOldRDN {
		oldName := entry.Name
		if err := uow.DeleteAttributeValues(ctx, entry.ID, rdnAttributeType(req.NewRDN), []string{oldName}); err != nil {
			h.Logger.Warn().Err(err).Msg("failed to strip old RDN attribute value")
		}
	}

	if err := uow.Commit(ctx); err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
		return
	}
	conn.SendResult(msg.MessageID, nil, ldap.TypeModifyDNResponseOp, h.successResult(ctx))
}

// rdnAttributeValue parses a (possibly multi-valued) RDN string such as
// "cn=Jane Doe" or "cn=Jane Doe+ou=Sales" and returns it re-serialised
// whole ("cn=Jane Doe"), the form stored as Directory.Name. The RDN is
// always the leftmost (leaf) component in ldap.DN's string order, so once
// parsed alongside a dummy suffix it is parsed[0].
func rdnAttributeValue(rdn string) (string, error) {
	parsed, err := ldap.ParseDN(rdn + ",dc=invalid")
	if err != nil || len(parsed) == 0 {
		return "", err
	}
	return parsed[0].String(), nil
}

func rdnAttributeType(rdn string) string {
	parsed, err := ldap.ParseDN(rdn + ",dc=invalid")
	if err != nil || len(parsed) == 0 || len(parsed[0]) == 0 {
		return ""
	}
	return parsed[0][0].Type
}
