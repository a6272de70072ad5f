package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/password"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
)

// Add creates a new Directory entry under its DN's parent, rejecting a
// missing parent (NO_SUCH_OBJECT) or an existing sibling of the same RDN
// (ENTRY_ALREADY_EXISTS). A memberOf attribute on the new entry is
// translated into group-membership edges rather than stored as a plain
// attribute row.
func (h *Handler) Add(ctx context.Context, conn *session.Conn, msg *ldap.Message, req *ldap.AddRequest) {
	if _, bound := identityOf(conn); !bound {
		conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(ldap.ResultInsufficientAccessRights, "bind required"))
		return
	}

	components, err := dnToComponents(req.Entry)
	if err != nil || len(components) == 0 {
		conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(ldap.ResultInvalidDNSyntax, "malformed entry DN"))
		return
	}
	parentComponents, name := components[:len(components)-1], components[len(components)-1]

	uow, err := h.Store.Begin(ctx)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
		return
	}
	defer uow.Rollback(ctx)

	parent, err := uow.GetByPath(ctx, parentComponents)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(ldap.ResultNoSuchObject, "parent does not exist"))
		return
	}

	objectClass := ""
	hasObjectGUID := false
	var objectClassValues []string
	var attrs []model.Attribute
	var memberOfGroups []string
	var samAccountName, userPrincipalName, displayName, mail, plaintextPassword string
	for _, a := range req.Attributes {
		switch {
		case strings.EqualFold(a.Description, "objectclass"):
			objectClassValues = append(objectClassValues, a.Values...)
			if len(a.Values) > 0 {
				objectClass = a.Values[len(a.Values)-1]
			}
		case strings.EqualFold(a.Description, "memberof"):
			memberOfGroups = append(memberOfGroups, a.Values...)
			continue
		case strings.EqualFold(a.Description, "samaccountname"):
			samAccountName = lastValue(a.Values)
		case strings.EqualFold(a.Description, "userprincipalname"):
			userPrincipalName = lastValue(a.Values)
		case strings.EqualFold(a.Description, "displayname"):
			displayName = lastValue(a.Values)
		case strings.EqualFold(a.Description, "mail"):
			mail = lastValue(a.Values)
		case strings.EqualFold(a.Description, attrUserPassword), strings.EqualFold(a.Description, "unicodepwd"):
			plaintextPassword = lastValue(a.Values)
			continue
		}
		if strings.EqualFold(a.Description, model.SettingObjectGUID) {
			hasObjectGUID = true
		}
		for _, v := range a.Values {
			attrs = append(attrs, model.Attribute{Name: a.Description, Value: v})
		}
	}
	if !hasObjectGUID {
		attrs = append(attrs, model.Attribute{Name: model.SettingObjectGUID, Value: uuid.New().String()})
	}

	entry, err := uow.CreateEntry(ctx, parent.ID, objectClass, name, attrs)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(storeErrCode(err), err.Error()))
		return
	}

	isGroup := containsClass(objectClassValues, "group")
	if containsClass(objectClassValues, "user") {
		hash := ""
		if plaintextPassword != "" {
			hash, err = password.Hash(plaintextPassword)
			if err != nil {
				conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
				return
			}
		}
		if err := uow.CreateUser(ctx, entry.ID, samAccountName, userPrincipalName, displayName, mail, hash); err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(storeErrCode(err), err.Error()))
			return
		}
	} else if isGroup {
		if err := uow.CreateGroup(ctx, entry.ID); err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(storeErrCode(err), err.Error()))
			return
		}
	}

	for _, groupDN := range memberOfGroups {
		groupComponents, err := dnToComponents(groupDN)
		if err != nil {
			continue
		}
		group, err := uow.GetByPath(ctx, groupComponents)
		if err != nil {
			continue
		}
		if isGroup {
			err = uow.AddGroupToGroup(ctx, entry.ID, group.ID)
		} else {
			err = uow.AddUserToGroup(ctx, entry.ID, group.ID)
		}
		if err != nil {
			conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(storeErrCode(err), err.Error()))
			return
		}
	}

	if err := uow.Commit(ctx); err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
		return
	}
	conn.SendResult(msg.MessageID, nil, ldap.TypeAddResponseOp, h.successResult(ctx))
}

// lastValue mirrors the existing objectClass convention of preferring a
// multi-valued attribute's last supplied value when only a single column
// value is needed.
func lastValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

func containsClass(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
