package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/password"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
	"github.com/MultifactorLab/MultiDirectory/internal/store"
	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
)

const (
	attrMemberOf     = "memberof"
	attrUserPassword = "userpassword"
	attrPwdLastSet   = "pwdlastset"
)

// Modify applies a sequence of attribute changes to an entry inside one
// unit of work that commits only after every change has succeeded; the
// first failure is reported and all earlier changes are rolled back. A
// REPLACE is a delete-then-add pair run under a savepoint. memberOf
// changes translate to group-membership edges instead of attribute rows,
// and userPassword changes run through the password policy before being
// hashed and stored.
func (h *Handler) Modify(ctx context.Context, conn *session.Conn, msg *ldap.Message, req *ldap.ModifyRequest) {
	if _, bound := identityOf(conn); !bound {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(ldap.ResultInsufficientAccessRights, "bind required"))
		return
	}

	components, err := dnToComponents(req.Object)
	if err != nil || len(components) == 0 {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(ldap.ResultInvalidDNSyntax, "malformed entry DN"))
		return
	}

	uow, err := h.Store.Begin(ctx)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
		return
	}
	defer uow.Rollback(ctx)

	entry, err := uow.GetByPath(ctx, components)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(ldap.ResultNoSuchObject, "no such object"))
		return
	}

	for i, change := range req.Changes {
		name := strings.ToLower(change.Modification.Description)
		values := change.Modification.Values

		switch change.Operation {
		case ldap.ModifyAdd:
			if err := h.applyAdd(ctx, uow, entry, name, values); err != nil {
				conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(storeErrCode(err), err.Error()))
				return
			}
		case ldap.ModifyDelete:
			if err := h.applyDelete(ctx, uow, entry, name, values); err != nil {
				conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(storeErrCode(err), err.Error()))
				return
			}
		case ldap.ModifyReplace:
			savepoint := "modify_" + strconv.Itoa(i)
			if err := uow.Savepoint(ctx, savepoint); err != nil {
				conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
				return
			}
			if err := h.applyDelete(ctx, uow, entry, name, nil); err != nil {
				uow.RollbackTo(ctx, savepoint)
				conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(storeErrCode(err), err.Error()))
				return
			}
			if err := h.applyAdd(ctx, uow, entry, name, values); err != nil {
				uow.RollbackTo(ctx, savepoint)
				conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(storeErrCode(err), err.Error()))
				return
			}
			uow.ReleaseSavepoint(ctx, savepoint)
		default:
			conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(ldap.ResultProtocolError, "unsupported modify operation"))
			return
		}
	}

	if err := uow.Commit(ctx); err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, resultErr(ldap.ResultOperationsError, err.Error()))
		return
	}
	conn.SendResult(msg.MessageID, nil, ldap.TypeModifyResponseOp, h.successResult(ctx))
}

func (h *Handler) applyAdd(ctx context.Context, uow store.UnitOfWork, entry *model.Directory, name string, values []string) error {
	switch name {
	case attrMemberOf:
		for _, groupDN := range values {
			groupComponents, err := dnToComponents(groupDN)
			if err != nil {
				continue
			}
			group, err := uow.GetByPath(ctx, groupComponents)
			if err != nil {
				continue
			}
			if strings.EqualFold(entry.ObjectClass, "group") {
				if err := uow.AddGroupToGroup(ctx, entry.ID, group.ID); err != nil {
					return err
				}
			} else if err := uow.AddUserToGroup(ctx, entry.ID, group.ID); err != nil {
				return err
			}
		}
		return nil
	case attrUserPassword:
		return h.setPassword(ctx, uow, entry, values)
	default:
		return uow.AddAttributeValues(ctx, entry.ID, name, values)
	}
}

func (h *Handler) applyDelete(ctx context.Context, uow store.UnitOfWork, entry *model.Directory, name string, values []string) error {
	if name == attrMemberOf {
		for _, groupDN := range values {
			groupComponents, err := dnToComponents(groupDN)
			if err != nil {
				continue
			}
			group, err := uow.GetByPath(ctx, groupComponents)
			if err != nil {
				continue
			}
			if strings.EqualFold(entry.ObjectClass, "group") {
				if err := uow.RemoveGroupFromGroup(ctx, entry.ID, group.ID); err != nil {
					return err
				}
			} else if err := uow.RemoveUserFromGroup(ctx, entry.ID, group.ID); err != nil {
				return err
			}
		}
		return nil
	}
	return uow.DeleteAttributeValues(ctx, entry.ID, name, values)
}

// setPassword validates a new userPassword change against the singleton
// password policy before hashing and storing it, then resets pwdLastSet so
// the next Bind picks up the new age baseline.
func (h *Handler) setPassword(ctx context.Context, uow store.UnitOfWork, entry *model.Directory, values []string) error {
	if len(values) == 0 {
		return nil
	}
	plaintext := values[len(values)-1]

	user, err := uow.GetUserByDirectoryID(ctx, entry.ID)
	if err != nil {
		return err
	}
	policy, err := uow.PasswordPolicy(ctx)
	if err != nil {
		return err
	}

	lastSet := time.Time{}
	rows, err := uow.Attributes(ctx, entry.ID)
	if err == nil {
		for _, row := range rows {
			if strings.EqualFold(row.Name, attrPwdLastSet) {
				ts := model.ParseWindowsTimestamp(row.Value)
				if !ts.ForceReset {
					lastSet = ts.At
				}
			}
		}
	}

	if violations := password.Validate(*policy, plaintext, user.PasswordHistory, lastSet, time.Now()); len(violations) > 0 {
		return policyViolationError(violations[0])
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return err
	}
	history := append([]string{hash}, user.PasswordHistory...)
	if policy.HistoryLength > 0 && len(history) > policy.HistoryLength {
		history = history[:policy.HistoryLength]
	}
	if err := uow.UpdatePasswordHash(ctx, entry.ID, hash, history); err != nil {
		return err
	}
	return uow.ReplaceAttributeValues(ctx, entry.ID, attrPwdLastSet, []string{model.WindowsTimestamp{At: time.Now()}.String()})
}
