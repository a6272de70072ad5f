package handler

import (
	"context"
	"strings"

	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
)

// Compare reports CompareTrue/CompareFalse, both of which are success
// results per RFC 4511 §4.10, not an error branch.
func (h *Handler) Compare(ctx context.Context, conn *session.Conn, msg *ldap.Message, req *ldap.CompareRequest) {
	components, err := dnToComponents(req.Object)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeCompareResponseOp, resultErr(ldap.ResultInvalidDNSyntax, "malformed object DN"))
		return
	}

	entry, err := h.Store.GetByPath(ctx, components)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeCompareResponseOp, resultErr(ldap.ResultNoSuchObject, "no such object"))
		return
	}

	rows, err := h.Store.Attributes(ctx, entry.ID)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeCompareResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
		return
	}
	matchedDN := h.namingContext(ctx)
	for _, row := range rows {
		if strings.EqualFold(row.Name, req.Attribute) && row.Value == req.Value {
			conn.SendResult(msg.MessageID, nil, ldap.TypeCompareResponseOp, ldap.ResultCompareTrue.AsResultWithDN("", matchedDN))
			return
		}
	}
	conn.SendResult(msg.MessageID, nil, ldap.TypeCompareResponseOp, ldap.ResultCompareFalse.AsResultWithDN("", matchedDN))
}
