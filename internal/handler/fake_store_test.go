package handler_test

import (
	"context"
	"strings"
	"sync"

	"github.com/MultifactorLab/MultiDirectory/internal/filter"
	"github.com/MultifactorLab/MultiDirectory/internal/store"
	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
)

// fakeStore is a minimal in-memory store.Store used to exercise
// internal/handler without a real database, in the spirit of the
// teacher's table-driven unit tests.
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	entries    map[int64]*model.Directory
	paths      map[int64][]string
	attrs      map[int64][]model.Attribute
	users      map[int64]*model.User
	groups     map[int64]bool            // directory IDs with a Groups specialisation row
	groupEdges map[int64]map[int64]bool // childID -> set of parent group IDs
	settings   map[string]string
	policies   []model.NetworkPolicy
	pwdPolicy  model.PasswordPolicy
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:    map[int64]*model.Directory{},
		paths:      map[int64][]string{},
		attrs:      map[int64][]model.Attribute{},
		users:      map[int64]*model.User{},
		groups:     map[int64]bool{},
		groupEdges: map[int64]map[int64]bool{},
		settings: map[string]string{
			model.SettingDefaultNamingContext: "dc=example,dc=org",
			model.SettingVendorName:           "Test",
			model.SettingVendorVersion:        "1.0",
		},
		pwdPolicy: model.PasswordPolicy{HistoryLength: 3, MinLength: 8},
	}
}

// seed inserts an entry directly, bypassing CreateEntry's parent checks.
func (s *fakeStore) seed(parentID *int64, objectClass, name string, path []string, attrs []model.Attribute) *model.Directory {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	d := &model.Directory{ID: id, ParentID: parentID, ObjectClass: objectClass, Name: name}
	s.entries[id] = d
	s.paths[id] = path
	s.attrs[id] = attrs
	return d
}

func (s *fakeStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	return &fakeUOW{s: s}, nil
}

func (s *fakeStore) GetByPath(ctx context.Context, components []string) (*model.Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.paths {
		if equalPath(p, components) {
			return s.entries[id], nil
		}
	}
	return nil, store.ErrNotFound
}

func equalPath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*model.Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (s *fakeStore) Children(ctx context.Context, parentID int64) ([]*model.Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Directory
	for _, d := range s.entries {
		if d.ParentID != nil && *d.ParentID == parentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeStore) HasChildren(ctx context.Context, id int64) (bool, error) {
	kids, _ := s.Children(ctx, id)
	return len(kids) > 0, nil
}

func (s *fakeStore) Attributes(ctx context.Context, directoryID int64) ([]model.Attribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Attribute(nil), s.attrs[directoryID]...), nil
}

func (s *fakeStore) CreateEntry(ctx context.Context, parentID int64, objectClass, name string, attrs []model.Attribute) (*model.Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parentPath, ok := s.paths[parentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for id, p := range s.paths {
		if s.entries[id].ParentID != nil && *s.entries[id].ParentID == parentID && strings.EqualFold(p[len(p)-1], name) {
			return nil, store.ErrConflict
		}
	}
	s.nextID++
	id := s.nextID
	pid := parentID
	d := &model.Directory{ID: id, ParentID: &pid, ObjectClass: objectClass, Name: name}
	s.entries[id] = d
	s.paths[id] = append(append([]string(nil), parentPath...), name)
	s.attrs[id] = attrs
	return d, nil
}

func (s *fakeStore) DeleteEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	has, _ := s.hasChildrenLocked(id)
	if has {
		return store.ErrHasChildren
	}
	delete(s.entries, id)
	delete(s.paths, id)
	delete(s.attrs, id)
	return nil
}

func (s *fakeStore) hasChildrenLocked(id int64) (bool, error) {
	for _, d := range s.entries {
		if d.ParentID != nil && *d.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) RenameSubtree(ctx context.Context, id int64, newParentID int64, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	newParentPath, ok := s.paths[newParentID]
	if !ok {
		return store.ErrNotFound
	}
	for otherID, p := range s.paths {
		if otherID == id {
			continue
		}
		if s.entries[otherID].ParentID != nil && *s.entries[otherID].ParentID == newParentID && strings.EqualFold(p[len(p)-1], newName) {
			return store.ErrConflict
		}
	}
	oldPath := s.paths[id]
	newPath := append(append([]string(nil), newParentPath...), newName)
	for otherID, p := range s.paths {
		if len(p) >= len(oldPath) && equalPath(p[:len(oldPath)], oldPath) {
			s.paths[otherID] = append(append([]string(nil), newPath...), p[len(oldPath):]...)
		}
	}
	s.entries[id].ParentID = &newParentID
	s.entries[id].Name = newName
	return nil
}

func (s *fakeStore) AddAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		for _, a := range s.attrs[directoryID] {
			if strings.EqualFold(a.Name, name) && a.Value == v {
				return store.ErrAttributeExists
			}
		}
		s.attrs[directoryID] = append(s.attrs[directoryID], model.Attribute{DirectoryID: directoryID, Name: name, Value: v})
	}
	return nil
}

func (s *fakeStore) DeleteAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.attrs[directoryID]
	var kept []model.Attribute
	for _, a := range cur {
		if !strings.EqualFold(a.Name, name) {
			kept = append(kept, a)
			continue
		}
		if len(values) == 0 {
			continue
		}
		drop := false
		for _, v := range values {
			if a.Value == v {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, a)
		}
	}
	s.attrs[directoryID] = kept
	return nil
}

func (s *fakeStore) ReplaceAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error {
	s.mu.Lock()
	cur := s.attrs[directoryID]
	var kept []model.Attribute
	for _, a := range cur {
		if !strings.EqualFold(a.Name, name) {
			kept = append(kept, a)
		}
	}
	for _, v := range values {
		kept = append(kept, model.Attribute{DirectoryID: directoryID, Name: name, Value: v})
	}
	s.attrs[directoryID] = kept
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) GetUserByPrincipal(ctx context.Context, principal string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.UserPrincipalName, principal) || strings.EqualFold(u.SAMAccountName, principal) {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) GetUserByDirectoryID(ctx context.Context, directoryID int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[directoryID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) UpdatePasswordHash(ctx context.Context, directoryID int64, hash string, history []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[directoryID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	u.PasswordHistory = history
	return nil
}

func (s *fakeStore) StampLastLogon(ctx context.Context, directoryID int64) error {
	return nil
}

func (s *fakeStore) GroupMembers(ctx context.Context, groupDirectoryID int64) (userIDs, groupIDs []int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for childID, parents := range s.groupEdges {
		if !parents[groupDirectoryID] {
			continue
		}
		if _, isUser := s.users[childID]; isUser {
			userIDs = append(userIDs, childID)
		} else {
			groupIDs = append(groupIDs, childID)
		}
	}
	return userIDs, groupIDs, nil
}

func (s *fakeStore) IsTransitiveMember(ctx context.Context, userID, groupID int64, maxDepth int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]bool{}
	var visit func(id int64, depth int) bool
	visit = func(id int64, depth int) bool {
		if depth > maxDepth || seen[id] {
			return false
		}
		seen[id] = true
		for parent := range s.groupEdges[id] {
			if parent == groupID {
				return true
			}
			if visit(parent, depth+1) {
				return true
			}
		}
		return false
	}
	return visit(userID, 0), nil
}

func (s *fakeStore) AddUserToGroup(ctx context.Context, userDirectoryID, groupDirectoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groupEdges[userDirectoryID] == nil {
		s.groupEdges[userDirectoryID] = map[int64]bool{}
	}
	s.groupEdges[userDirectoryID][groupDirectoryID] = true
	return nil
}

func (s *fakeStore) AddGroupToGroup(ctx context.Context, childGroupID, parentGroupID int64) error {
	if childGroupID == parentGroupID {
		return store.ErrCycle
	}
	cyclic, err := s.IsTransitiveMember(ctx, parentGroupID, childGroupID, 32)
	if err != nil {
		return err
	}
	if cyclic {
		return store.ErrCycle
	}
	return s.AddUserToGroup(ctx, childGroupID, parentGroupID)
}

func (s *fakeStore) CreateUser(ctx context.Context, directoryID int64, samAccountName, userPrincipalName, displayName, mail, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[directoryID] = &model.User{
		DirectoryID:       directoryID,
		SAMAccountName:    samAccountName,
		UserPrincipalName: userPrincipalName,
		DisplayName:       displayName,
		Mail:              mail,
		PasswordHash:      passwordHash,
	}
	return nil
}

func (s *fakeStore) CreateGroup(ctx context.Context, directoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[directoryID] = true
	return nil
}

func (s *fakeStore) RemoveUserFromGroup(ctx context.Context, userDirectoryID, groupDirectoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groupEdges[userDirectoryID], groupDirectoryID)
	return nil
}

func (s *fakeStore) RemoveGroupFromGroup(ctx context.Context, childGroupID, parentGroupID int64) error {
	return s.RemoveUserFromGroup(ctx, childGroupID, parentGroupID)
}

func (s *fakeStore) Search(ctx context.Context, q store.Query) (<-chan *model.Directory, <-chan error) {
	out := make(chan *model.Directory)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		s.mu.Lock()
		var candidates []*model.Directory
		basePath := s.paths[q.Base]
		for id, d := range s.entries {
			p := s.paths[id]
			switch q.Scope {
			case store.ScopeBaseObject:
				if id != q.Base {
					continue
				}
			case store.ScopeSingleLevel:
				if d.ParentID == nil || *d.ParentID != q.Base {
					continue
				}
			default: // whole subtree / subordinate
				if len(p) < len(basePath) || !equalPath(p[:len(basePath)], basePath) {
					continue
				}
				if q.Scope == store.ScopeSubordinateSubtree && id == q.Base {
					continue
				}
			}
			candidates = append(candidates, d)
		}
		s.mu.Unlock()

		for _, d := range candidates {
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}
			if !s.matches(d, q.Predicate) {
				continue
			}
			select {
			case out <- d:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

func (s *fakeStore) matches(d *model.Directory, p store.Predicate) bool {
	if p == nil {
		return true
	}
	fp, ok := p.(*filter.Predicate)
	if !ok {
		return true
	}
	rows, _ := s.Attributes(context.Background(), d.ID)
	return evalNode(fp.Root, d, rows)
}

func evalNode(n filter.Node, d *model.Directory, rows []model.Attribute) bool {
	switch t := n.(type) {
	case filter.AndNode:
		for _, c := range t.Children {
			if !evalNode(c, d, rows) {
				return false
			}
		}
		return true
	case filter.OrNode:
		for _, c := range t.Children {
			if evalNode(c, d, rows) {
				return true
			}
		}
		return false
	case filter.NotNode:
		return !evalNode(t.Child, d, rows)
	case filter.PresentNode:
		if strings.EqualFold(t.Column.Name, "objectclass") {
			return d.ObjectClass != ""
		}
		for _, a := range rows {
			if strings.EqualFold(a.Name, t.Column.Name) {
				return true
			}
		}
		return false
	case filter.CompareNode:
		if strings.EqualFold(t.Column.Name, "objectclass") {
			return strings.EqualFold(d.ObjectClass, t.Value)
		}
		for _, a := range rows {
			if strings.EqualFold(a.Name, t.Column.Name) && a.Value == t.Value {
				return true
			}
		}
		return false
	case filter.SubstringNode:
		for _, a := range rows {
			if strings.EqualFold(a.Name, t.Column.Name) && strings.Contains(a.Value, t.Final+t.Initial) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func (s *fakeStore) Settings(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) NetworkPolicies(ctx context.Context) ([]model.NetworkPolicy, error) {
	return s.policies, nil
}

func (s *fakeStore) PasswordPolicy(ctx context.Context) (*model.PasswordPolicy, error) {
	p := s.pwdPolicy
	return &p, nil
}

func (s *fakeStore) SearchableUserColumns() []string {
	return []string{"uid", "userprincipalname", "mail"}
}

func (s *fakeStore) SearchableDirectoryColumns() []string {
	return []string{"cn", "ou", "objectclass"}
}

// fakeUOW adapts fakeStore (whose mutations already apply immediately) to
// the transactional UnitOfWork contract. Savepoints are no-ops beyond
// their ordering guarantees since the fake has no real rollback log.
type fakeUOW struct {
	s *fakeStore
}

func (u *fakeUOW) Savepoint(ctx context.Context, name string) error        { return nil }
func (u *fakeUOW) RollbackTo(ctx context.Context, name string) error       { return nil }
func (u *fakeUOW) ReleaseSavepoint(ctx context.Context, name string) error { return nil }
func (u *fakeUOW) Commit(ctx context.Context) error                        { return nil }
func (u *fakeUOW) Rollback(ctx context.Context) error                      { return nil }

func (u *fakeUOW) GetByPath(ctx context.Context, components []string) (*model.Directory, error) {
	return u.s.GetByPath(ctx, components)
}
func (u *fakeUOW) GetByID(ctx context.Context, id int64) (*model.Directory, error) {
	return u.s.GetByID(ctx, id)
}
func (u *fakeUOW) Children(ctx context.Context, parentID int64) ([]*model.Directory, error) {
	return u.s.Children(ctx, parentID)
}
func (u *fakeUOW) HasChildren(ctx context.Context, id int64) (bool, error) {
	return u.s.HasChildren(ctx, id)
}
func (u *fakeUOW) Attributes(ctx context.Context, directoryID int64) ([]model.Attribute, error) {
	return u.s.Attributes(ctx, directoryID)
}
func (u *fakeUOW) CreateEntry(ctx context.Context, parentID int64, objectClass, name string, attrs []model.Attribute) (*model.Directory, error) {
	return u.s.CreateEntry(ctx, parentID, objectClass, name, attrs)
}
func (u *fakeUOW) DeleteEntry(ctx context.Context, id int64) error {
	return u.s.DeleteEntry(ctx, id)
}
func (u *fakeUOW) RenameSubtree(ctx context.Context, id int64, newParentID int64, newName string) error {
	return u.s.RenameSubtree(ctx, id, newParentID, newName)
}
func (u *fakeUOW) AddAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error {
	return u.s.AddAttributeValues(ctx, directoryID, name, values)
}
func (u *fakeUOW) DeleteAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error {
	return u.s.DeleteAttributeValues(ctx, directoryID, name, values)
}
func (u *fakeUOW) ReplaceAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error {
	return u.s.ReplaceAttributeValues(ctx, directoryID, name, values)
}
func (u *fakeUOW) GetUserByPrincipal(ctx context.Context, principal string) (*model.User, error) {
	return u.s.GetUserByPrincipal(ctx, principal)
}
func (u *fakeUOW) GetUserByDirectoryID(ctx context.Context, directoryID int64) (*model.User, error) {
	return u.s.GetUserByDirectoryID(ctx, directoryID)
}
func (u *fakeUOW) UpdatePasswordHash(ctx context.Context, directoryID int64, hash string, history []string) error {
	return u.s.UpdatePasswordHash(ctx, directoryID, hash, history)
}
func (u *fakeUOW) StampLastLogon(ctx context.Context, directoryID int64) error {
	return u.s.StampLastLogon(ctx, directoryID)
}
func (u *fakeUOW) CreateUser(ctx context.Context, directoryID int64, samAccountName, userPrincipalName, displayName, mail, passwordHash string) error {
	return u.s.CreateUser(ctx, directoryID, samAccountName, userPrincipalName, displayName, mail, passwordHash)
}
func (u *fakeUOW) CreateGroup(ctx context.Context, directoryID int64) error {
	return u.s.CreateGroup(ctx, directoryID)
}
func (u *fakeUOW) GroupMembers(ctx context.Context, groupDirectoryID int64) ([]int64, []int64, error) {
	return u.s.GroupMembers(ctx, groupDirectoryID)
}
func (u *fakeUOW) IsTransitiveMember(ctx context.Context, userID, groupID int64, maxDepth int) (bool, error) {
	return u.s.IsTransitiveMember(ctx, userID, groupID, maxDepth)
}
func (u *fakeUOW) AddUserToGroup(ctx context.Context, userDirectoryID, groupDirectoryID int64) error {
	return u.s.AddUserToGroup(ctx, userDirectoryID, groupDirectoryID)
}
func (u *fakeUOW) AddGroupToGroup(ctx context.Context, childGroupID, parentGroupID int64) error {
	return u.s.AddGroupToGroup(ctx, childGroupID, parentGroupID)
}
func (u *fakeUOW) RemoveUserFromGroup(ctx context.Context, userDirectoryID, groupDirectoryID int64) error {
	return u.s.RemoveUserFromGroup(ctx, userDirectoryID, groupDirectoryID)
}
func (u *fakeUOW) RemoveGroupFromGroup(ctx context.Context, childGroupID, parentGroupID int64) error {
	return u.s.RemoveGroupFromGroup(ctx, childGroupID, parentGroupID)
}
func (u *fakeUOW) Search(ctx context.Context, q store.Query) (<-chan *model.Directory, <-chan error) {
	return u.s.Search(ctx, q)
}
func (u *fakeUOW) Settings(ctx context.Context) (map[string]string, error) {
	return u.s.Settings(ctx)
}
func (u *fakeUOW) NetworkPolicies(ctx context.Context) ([]model.NetworkPolicy, error) {
	return u.s.NetworkPolicies(ctx)
}
func (u *fakeUOW) PasswordPolicy(ctx context.Context) (*model.PasswordPolicy, error) {
	return u.s.PasswordPolicy(ctx)
}
func (u *fakeUOW) SearchableUserColumns() []string      { return u.s.SearchableUserColumns() }
func (u *fakeUOW) SearchableDirectoryColumns() []string { return u.s.SearchableDirectoryColumns() }

var _ store.Store = (*fakeStore)(nil)
var _ store.UnitOfWork = (*fakeUOW)(nil)
