// Package store defines the persistence contract consumed by the filter
// interpreter and the operation handlers. Implementations live in
// sub-packages (see store/postgres); this package only pins the interface
// and the query/predicate types both sides agree on.
package store

import (
	"context"
	"errors"

	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
)

// ErrNotFound is returned by lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a uniqueness invariant would be violated
// (sibling name collision, …). Group-membership cycles get ErrCycle.
var ErrConflict = errors.New("store: conflict")

// ErrHasChildren is returned by Delete when the target entry is not a leaf.
var ErrHasChildren = errors.New("store: entry has children")

// ErrAttributeExists is returned by AddAttributeValues when the value
// being added is already present under the "add" semantics of Modify
// (RFC 4511 §4.6: ATTRIBUTE_OR_VALUE_EXISTS, distinct from a sibling-name
// or entry conflict).
var ErrAttributeExists = errors.New("store: attribute value already exists")

// ErrCycle is returned by AddGroupToGroup when the edge being inserted
// would close a cycle in the group->group graph (RFC 4511 §4.6:
// CONSTRAINT_VIOLATION, distinct from a sibling-name or entry conflict).
var ErrCycle = errors.New("store: group membership cycle")

// Scope mirrors ldap.SearchScope without importing the ldap package, so
// store stays independent of the wire layer.
type Scope int

const (
	ScopeBaseObject Scope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
	ScopeSubordinateSubtree
)

// Predicate is an opaque store-side query fragment produced by the filter
// interpreter (package filter) and consumed by Search. Implementations type
// -assert it into whatever shape their query builder expects; the store
// package itself never inspects it. It declares no methods, so a type from
// another package (such as *filter.Predicate) satisfies it.
type Predicate interface{}

// Query describes a single Search request translated to store terms.
type Query struct {
	Base      int64 // Directory.ID of the base object
	Scope     Scope
	Predicate Predicate
	SizeLimit uint32
}

// UnitOfWork is a transactional handle with nested-savepoint support,
// required by Modify's delete-then-add replace semantics.
type UnitOfWork interface {
	// Savepoint opens a named nested transaction point.
	Savepoint(ctx context.Context, name string) error
	// RollbackTo undoes everything since the named savepoint.
	RollbackTo(ctx context.Context, name string) error
	// ReleaseSavepoint discards a savepoint without rolling back.
	ReleaseSavepoint(ctx context.Context, name string) error
	// Commit commits the whole unit of work.
	Commit(ctx context.Context) error
	// Rollback aborts the whole unit of work.
	Rollback(ctx context.Context) error

	DirectoryStore
}

// DirectoryStore is the CRUD and query surface over the directory tree,
// usable both standalone (read-only callers) and through a UnitOfWork.
type DirectoryStore interface {
	// GetByPath resolves a DN's component path to a Directory entry.
	GetByPath(ctx context.Context, components []string) (*model.Directory, error)
	// GetByID fetches a single Directory entry.
	GetByID(ctx context.Context, id int64) (*model.Directory, error)
	// Children returns the immediate children of a Directory entry.
	Children(ctx context.Context, parentID int64) ([]*model.Directory, error)
	// HasChildren reports whether a Directory entry has any children.
	HasChildren(ctx context.Context, id int64) (bool, error)

	// Attributes returns every Attribute row for a Directory entry.
	Attributes(ctx context.Context, directoryID int64) ([]model.Attribute, error)

	// CreateEntry inserts a Directory (and its Path) under parentID.
	CreateEntry(ctx context.Context, parentID int64, objectClass, name string, attrs []model.Attribute) (*model.Directory, error)
	// DeleteEntry removes a leaf Directory entry and its attributes.
	DeleteEntry(ctx context.Context, id int64) error
	// RenameSubtree rewrites id's Path (and every descendant's) to reflect
	// a new RDN and/or new parent.
	RenameSubtree(ctx context.Context, id int64, newParentID int64, newName string) error

	// AddAttributeValues appends values; ErrAttributeExists if a value already
	// exists under the "add" semantics described by the spec.
	AddAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error
	// DeleteAttributeValues removes values (all values if values is empty).
	DeleteAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error
	// ReplaceAttributeValues atomically clears then sets an attribute.
	ReplaceAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error

	// GetUserByPrincipal resolves a User by UPN or sAMAccountName.
	GetUserByPrincipal(ctx context.Context, principal string) (*model.User, error)
	GetUserByDirectoryID(ctx context.Context, directoryID int64) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, directoryID int64, hash string, history []string) error
	StampLastLogon(ctx context.Context, directoryID int64) error

	// CreateUser inserts the Users specialisation row for a Directory entry
	// just created by Add whose objectClass contains "user". passwordHash
	// is empty when the Add request supplied no userPassword/unicodePwd.
	CreateUser(ctx context.Context, directoryID int64, samAccountName, userPrincipalName, displayName, mail, passwordHash string) error
	// CreateGroup inserts the Groups specialisation row for a Directory
	// entry just created by Add whose objectClass contains "group".
	CreateGroup(ctx context.Context, directoryID int64) error

	// GroupMembers returns the Directory IDs of a group's direct user and
	// nested-group members (no transitive closure).
	GroupMembers(ctx context.Context, groupDirectoryID int64) (userIDs, groupIDs []int64, err error)
	// IsTransitiveMember reports whether userID is a member of groupID at
	// any depth up to maxDepth, cycle-safe.
	IsTransitiveMember(ctx context.Context, userID, groupID int64, maxDepth int) (bool, error)
	// AddUserToGroup and AddGroupToGroup link a user or nested group to a
	// group; AddGroupToGroup returns ErrCycle if the edge would create a cycle.
	AddUserToGroup(ctx context.Context, userDirectoryID, groupDirectoryID int64) error
	AddGroupToGroup(ctx context.Context, childGroupID, parentGroupID int64) error
	RemoveUserFromGroup(ctx context.Context, userDirectoryID, groupDirectoryID int64) error
	RemoveGroupFromGroup(ctx context.Context, childGroupID, parentGroupID int64) error

	// Search executes q and streams matching Directory entries onto the
	// returned channel, closing it when exhausted, on ctx cancellation, or
	// on error (in which case the error is delivered via errOut before
	// close). Implementations must not buffer the full result set.
	Search(ctx context.Context, q Query) (entries <-chan *model.Directory, errOut <-chan error)

	// Settings returns the full CatalogueSetting table.
	Settings(ctx context.Context) (map[string]string, error)
	// NetworkPolicies returns enabled policies ordered by ascending priority.
	NetworkPolicies(ctx context.Context) ([]model.NetworkPolicy, error)
	// PasswordPolicy returns the singleton password policy.
	PasswordPolicy(ctx context.Context) (*model.PasswordPolicy, error)

	// SearchableUserColumns and SearchableDirectoryColumns enumerate the
	// indexed columns the filter interpreter may route to directly (§4.D).
	SearchableUserColumns() []string
	SearchableDirectoryColumns() []string
}

// Store is the top-level handle handlers acquire a UnitOfWork from.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	// DirectoryStore exposes read-only convenience methods without an
	// explicit transaction, used by Search (which doesn't mutate).
	DirectoryStore
}
