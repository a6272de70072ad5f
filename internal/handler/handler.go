// Package handler implements RFC 4511's operation semantics over a
// store.Store, translating wire requests into store calls and directory
// policy decisions into LDAPResult responses.
package handler

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MultifactorLab/MultiDirectory/internal/ber"
	"github.com/MultifactorLab/MultiDirectory/internal/filter"
	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/mfa"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
	"github.com/MultifactorLab/MultiDirectory/internal/store"
	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
)

// Identity is what Bind stamps onto a session.Conn.Bound on success.
// Search and the mutating operations consult it for access decisions.
type Identity struct {
	DirectoryID int64
	UPN         string
	IsAdmin     bool
}

// Handler implements session.Handler against a directory store.
type Handler struct {
	Store         store.Store
	FilterOptions filter.Options
	AllowAnonymousBind bool
	MaxTransitiveDepth int

	MFA         *mfa.Service
	MFACallback string // side-channel callback URL template passed to the provider
	Logger      zerolog.Logger

	// VendorName and VendorVersion populate RootDSE's vendorName/
	// vendorVersion attributes. These come from process configuration
	// (VENDOR_NAME/VENDOR_VERSION), not the store, since they describe
	// this running binary rather than directory-persisted state.
	VendorName    string
	VendorVersion string
}

// New builds a Handler with spec defaults (anonymous bind disabled, a
// transitive group-membership search depth of 32, and the configurable
// approxMatch-as-inequality filter behaviour left at its documented
// default). The first approxMatch compiled as inequality logs one warn
// line for the Handler's lifetime.
func New(s store.Store, logger zerolog.Logger) *Handler {
	h := &Handler{
		Store:              s,
		FilterOptions:      filter.DefaultOptions(),
		AllowAnonymousBind: false,
		MaxTransitiveDepth: 32,
		Logger:             logger,
	}
	var approxWarned sync.Once
	h.FilterOptions.WarnOnApproxMatch = func() {
		approxWarned.Do(func() {
			h.Logger.Warn().Msg("approxMatch (~=) filter evaluated as inequality")
		})
	}
	return h
}

var _ session.Handler = (*Handler)(nil)

func (h *Handler) Other(ctx context.Context, conn *session.Conn, msg *ldap.Message) {
	conn.SendResult(msg.MessageID, nil, ber.TypeSequence, ldap.UnsupportedOperation)
}

func (h *Handler) Abandon(ctx context.Context, conn *session.Conn, msg *ldap.Message, target ldap.MessageID) {
	conn.Cancel(target)
}

func resultErr(code ldap.ResultCode, msg string) *ldap.Result {
	return code.AsResult(msg)
}

// policyViolationError wraps a password.Validate violation message so
// storeErrCode can map it to CONSTRAINT_VIOLATION instead of the generic
// OPERATIONS_ERROR every other store failure gets.
type policyViolationError string

func (e policyViolationError) Error() string { return string(e) }

func storeErrCode(err error) ldap.ResultCode {
	switch {
	case err == store.ErrNotFound:
		return ldap.ResultNoSuchObject
	case err == store.ErrAttributeExists:
		return ldap.ResultAttributeOrValueExists
	case err == store.ErrCycle:
		return ldap.ResultConstraintViolation
	case err == store.ErrConflict:
		return ldap.ResultEntryAlreadyExists
	case err == store.ErrHasChildren:
		return ldap.ResultNotAllowedOnNonLeaf
	default:
		if _, ok := err.(policyViolationError); ok {
			return ldap.ResultConstraintViolation
		}
		return ldap.ResultOperationsError
	}
}

func identityOf(conn *session.Conn) (*Identity, bool) {
	id, ok := conn.Bound.(*Identity)
	return id, ok
}

// namingContext looks up the defaultNamingContext catalogue setting for
// MatchedDN on successful responses, mirroring how sendRootDSE already
// reads settings for RootDSE. A lookup failure just yields an empty
// MatchedDN rather than failing the whole operation.
func (h *Handler) namingContext(ctx context.Context) string {
	settings, err := h.Store.Settings(ctx)
	if err != nil {
		return ""
	}
	return settings[model.SettingDefaultNamingContext]
}

// successResult builds a SUCCESS Result carrying the directory's naming
// context as MatchedDN, the form every successful response in §4.E uses.
func (h *Handler) successResult(ctx context.Context) *ldap.Result {
	return ldap.ResultSuccess.AsResultWithDN("", h.namingContext(ctx))
}
