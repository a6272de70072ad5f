package handler

import (
	"context"

	"github.com/MultifactorLab/MultiDirectory/internal/filter"
	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
	"github.com/MultifactorLab/MultiDirectory/internal/store"
	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
)

// Search resolves the base object, compiles the filter into a store
// predicate, and streams SearchResultEntry messages as the store yields
// matching Directory entries, stopping early on sizeLimit, ctx
// cancellation, or an Abandon of this message ID.
func (h *Handler) Search(ctx context.Context, conn *session.Conn, msg *ldap.Message, req *ldap.SearchRequest) {
	if req.BaseObject == "" && req.Scope == ldap.SearchScopeBaseObject {
		h.sendRootDSE(conn, msg, req)
		return
	}
	if _, bound := identityOf(conn); !bound {
		conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, resultErr(ldap.ResultInsufficientAccessRights, "bind required"))
		return
	}

	components, err := dnToComponents(req.BaseObject)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, resultErr(ldap.ResultInvalidDNSyntax, "malformed base object DN"))
		return
	}

	baseEntry, err := h.Store.GetByPath(ctx, components)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, resultErr(ldap.ResultNoSuchObject, "no such object"))
		return
	}

	predicate, err := filter.Compile(ctx, req.Filter, h.Store, h.FilterOptions)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, resultErr(ldap.ResultProtocolError, err.Error()))
		return
	}

	q := store.Query{
		Base:      baseEntry.ID,
		Scope:     store.Scope(req.Scope),
		Predicate: predicate,
		SizeLimit: req.SizeLimit,
	}

	entries, errs := h.Store.Search(ctx, q)

	var sent uint32
	for entry := range entries {
		if conn.Cancelled(msg.MessageID) {
			return
		}
		if req.SizeLimit > 0 && sent >= req.SizeLimit {
			conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, resultErr(ldap.ResultSizeLimitExceeded, ""))
			return
		}
		attrs, err := h.entryAttributes(ctx, entry, req.Attributes, req.TypesOnly)
		if err != nil {
			continue
		}
		result := &ldap.SearchResultEntry{ObjectName: entry.Name, Attributes: attrs}
		conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultEntryOp, result)
		sent++
	}

	if err := <-errs; err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, resultErr(storeErrCode(err), err.Error()))
		return
	}

	conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, h.successResult(ctx))
}

func (h *Handler) entryAttributes(ctx context.Context, entry *model.Directory, selection []string, typesOnly bool) ([]ldap.Attribute, error) {
	rows, err := h.Store.Attributes(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	want := attributeSelector(selection)
	byName := make(map[string][]string)
	for _, row := range rows {
		if !want(row.Name) {
			continue
		}
		if typesOnly {
			byName[row.Name] = nil
			continue
		}
		byName[row.Name] = append(byName[row.Name], row.Value)
	}
	attrs := make([]ldap.Attribute, 0, len(byName))
	for name, values := range byName {
		attrs = append(attrs, ldap.Attribute{Description: name, Values: values})
	}
	return attrs, nil
}

// attributeSelector implements RFC 4511's AttributeSelection: an empty or
// "*"-containing list selects everything; "1.1" (OIDNoAttribute) selects
// nothing.
func attributeSelector(selection []string) func(string) bool {
	if len(selection) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]struct{}, len(selection))
	for _, s := range selection {
		if s == "*" {
			return func(string) bool { return true }
		}
		if s == string(ldap.OIDNoAttribute) {
			return func(string) bool { return false }
		}
		set[s] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}

// dnToComponents resolves a DN string to Path-order components. ldap.DN
// holds RDNs leftmost (leaf) first, matching wire and string order; Path
// is materialised root-first, so the RDN order is reversed here.
func dnToComponents(dn string) ([]string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(parsed))
	for i, rdn := range parsed {
		out[len(parsed)-1-i] = rdn.String()
	}
	return out, nil
}

func (h *Handler) sendRootDSE(conn *session.Conn, msg *ldap.Message, req *ldap.SearchRequest) {
	ctx := context.Background()
	settings, err := h.Store.Settings(ctx)
	if err != nil {
		conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, resultErr(ldap.ResultOperationsError, "failed to load root DSE"))
		return
	}
	attrs := []ldap.Attribute{
		{Description: "namingContexts", Values: []string{settings[model.SettingDefaultNamingContext]}},
		{Description: "supportedLDAPVersion", Values: []string{"3"}},
		{Description: "vendorName", Values: []string{h.VendorName}},
		{Description: "vendorVersion", Values: []string{h.VendorVersion}},
		{Description: "supportedExtension", Values: []string{string(ldap.OIDStartTLS)}},
	}
	conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultEntryOp, &ldap.SearchResultEntry{ObjectName: "", Attributes: attrs})
	conn.SendResult(msg.MessageID, nil, ldap.TypeSearchResultDoneOp, ldap.ResultSuccess.AsResult(""))
}
