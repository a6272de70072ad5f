package handler

import (
	"context"
	"net"

	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/password"
	"github.com/MultifactorLab/MultiDirectory/internal/policy"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
)

const invalidCredentialsMessage = "invalid credentials"

// Bind authenticates name/Credentials against the directory, applies the
// matching NetworkPolicy (source network, group restriction, MFA), and on
// success stamps conn.Bound with an *Identity and the entry's lastLogon.
//
// Every rejection of a simple bind reports the same
// invalidCredentialsMessage, so a client cannot distinguish "no such user"
// from "wrong password" from "network not permitted". A protocol version
// other than 3 gets PROTOCOL_ERROR, and a non-simple authentication
// choice gets AUTH_METHOD_NOT_SUPPORTED.
func (h *Handler) Bind(ctx context.Context, conn *session.Conn, msg *ldap.Message, req *ldap.BindRequest) {
	res := &ldap.BindResult{}

	if req.Version != 3 {
		res.Result = *ldap.ProtocolError
		conn.SendResult(msg.MessageID, nil, ldap.TypeBindResponseOp, res)
		return
	}

	if req.AuthType != ldap.AuthenticationTypeSimple {
		res.Result = *resultErr(ldap.ResultAuthMethodNotSupported, "only simple authentication is supported")
		conn.SendResult(msg.MessageID, nil, ldap.TypeBindResponseOp, res)
		return
	}

	plaintext, _ := req.Credentials.(string)
	if req.Name == "" || plaintext == "" {
		if !h.AllowAnonymousBind {
			res.Result = *resultErr(ldap.ResultInvalidCredentials, invalidCredentialsMessage)
			conn.SendResult(msg.MessageID, nil, ldap.TypeBindResponseOp, res)
			return
		}
		conn.Bound = nil
		res.Result = *h.successResult(ctx)
		conn.SendResult(msg.MessageID, nil, ldap.TypeBindResponseOp, res)
		return
	}

	ok := h.bindSimple(ctx, conn, req.Name, plaintext)
	if !ok {
		res.Result = *resultErr(ldap.ResultInvalidCredentials, invalidCredentialsMessage)
		conn.SendResult(msg.MessageID, nil, ldap.TypeBindResponseOp, res)
		return
	}

	res.Result = *h.successResult(ctx)
	conn.SendResult(msg.MessageID, nil, ldap.TypeBindResponseOp, res)
}

func (h *Handler) bindSimple(ctx context.Context, conn *session.Conn, principal, plaintext string) bool {
	user, err := h.Store.GetUserByPrincipal(ctx, principal)
	if err != nil {
		return false
	}

	if password.Verify(plaintext, user.PasswordHash) != nil {
		return false
	}

	rule, allowed := h.evaluateNetworkPolicy(ctx, conn.Peer)
	if !allowed {
		return false
	}

	if len(rule.Groups) > 0 && !h.userInAnyGroup(ctx, user.DirectoryID, rule.Groups) {
		return false
	}

	if rule.MFARequired && h.MFA != nil {
		if !h.challengeMFA(ctx, user.UserPrincipalName, user.DirectoryID) {
			return false
		}
	}

	if err := h.Store.StampLastLogon(ctx, user.DirectoryID); err != nil {
		h.Logger.Warn().Err(err).Msg("failed to stamp lastLogon")
	}

	conn.Bound = &Identity{DirectoryID: user.DirectoryID, UPN: user.UserPrincipalName}
	return true
}

func (h *Handler) evaluateNetworkPolicy(ctx context.Context, peer net.Addr) (policy.Rule, bool) {
	rows, err := h.Store.NetworkPolicies(ctx)
	if err != nil || len(rows) == 0 {
		return policy.Rule{}, false
	}
	rules := make([]policy.Rule, len(rows))
	for i, r := range rows {
		rules[i] = policy.Rule{CIDR: r.CIDR, Priority: r.Priority, Groups: r.Groups, MFARequired: r.MFARequired}
	}
	ip := peerIP(peer)
	if ip == nil {
		return policy.Rule{}, false
	}
	return policy.Evaluate(rules, ip)
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return nil
		}
		return net.ParseIP(host)
	}
}

func (h *Handler) userInAnyGroup(ctx context.Context, userDirectoryID int64, groupDNs []string) bool {
	for _, dn := range groupDNs {
		components, err := dnToComponents(dn)
		if err != nil {
			continue
		}
		group, err := h.Store.GetByPath(ctx, components)
		if err != nil {
			continue
		}
		member, err := h.Store.IsTransitiveMember(ctx, userDirectoryID, group.ID, h.MaxTransitiveDepth)
		if err == nil && member {
			return true
		}
	}
	return false
}

func (h *Handler) challengeMFA(ctx context.Context, upn string, directoryID int64) bool {
	ok, err := h.MFA.Challenge(ctx, upn, directoryID, h.MFACallback)
	if err != nil {
		h.Logger.Warn().Err(err).Str("upn", upn).Msg("mfa challenge failed")
	}
	return ok
}
