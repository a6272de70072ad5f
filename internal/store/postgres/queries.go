package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/MultifactorLab/MultiDirectory/internal/store"
	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
)

// execer is the subset of *sqlx.DB and *sqlx.Tx that queries needs; both
// satisfy it directly, letting the same method bodies serve Store (no
// transaction) and unitOfWork (inside one) without duplicating SQL.
type execer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type queries struct {
	q execer
}

type directoryRow struct {
	ID          int64         `db:"id"`
	ParentID    sql.NullInt64 `db:"parent_id"`
	ObjectClass string        `db:"object_class"`
	Name        string        `db:"name"`
	WhenCreated time.Time     `db:"when_created"`
	WhenChanged time.Time     `db:"when_changed"`
	Depth       int           `db:"depth"`
	ObjectSID   string        `db:"object_sid"`
	ObjectGUID  string        `db:"object_guid"`
}

func (r directoryRow) toModel() *model.Directory {
	d := &model.Directory{
		ID:          r.ID,
		ObjectClass: r.ObjectClass,
		Name:        r.Name,
		WhenCreated: r.WhenCreated,
		WhenChanged: r.WhenChanged,
		Depth:       r.Depth,
		ObjectSID:   r.ObjectSID,
		ObjectGUID:  r.ObjectGUID,
	}
	if r.ParentID.Valid {
		id := r.ParentID.Int64
		d.ParentID = &id
	}
	return d
}

type attributeRow struct {
	ID          int64  `db:"id"`
	DirectoryID int64  `db:"directory_id"`
	Name        string `db:"name"`
	Value       string `db:"value"`
	BValue      []byte `db:"bvalue"`
}

func (r attributeRow) toModel() model.Attribute {
	return model.Attribute{ID: r.ID, DirectoryID: r.DirectoryID, Name: r.Name, Value: r.Value, BValue: r.BValue}
}

type userRow struct {
	DirectoryID       int64          `db:"directory_id"`
	SAMAccountName    string         `db:"sam_account_name"`
	UserPrincipalName string         `db:"user_principal_name"`
	DisplayName       string         `db:"display_name"`
	Mail              string         `db:"mail"`
	PasswordHash      string         `db:"password_hash"`
	PasswordHistory   pq.StringArray `db:"password_history"`
	LastLogon         *time.Time     `db:"last_logon"`
	AccountExpires    *time.Time     `db:"account_expires"`
}

func (r userRow) toModel() *model.User {
	return &model.User{
		DirectoryID:       r.DirectoryID,
		SAMAccountName:    r.SAMAccountName,
		UserPrincipalName: r.UserPrincipalName,
		DisplayName:       r.DisplayName,
		Mail:              r.Mail,
		PasswordHash:      r.PasswordHash,
		PasswordHistory:   []string(r.PasswordHistory),
		LastLogon:         r.LastLogon,
		AccountExpires:    r.AccountExpires,
	}
}

type networkPolicyRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	CIDR        string         `db:"cidr"`
	Enabled     bool           `db:"enabled"`
	Priority    int            `db:"priority"`
	Groups      pq.StringArray `db:"groups"`
	MFARequired bool           `db:"mfa_required"`
}

func (r networkPolicyRow) toModel() model.NetworkPolicy {
	return model.NetworkPolicy{
		ID: r.ID, Name: r.Name, CIDR: r.CIDR, Enabled: r.Enabled,
		Priority: r.Priority, Groups: []string(r.Groups), MFARequired: r.MFARequired,
	}
}

type passwordPolicyRow struct {
	HistoryLength      int  `db:"history_length"`
	MaxAgeDays         int  `db:"max_age_days"`
	MinAgeDays         int  `db:"min_age_days"`
	MinLength          int  `db:"min_length"`
	ComplexityRequired bool `db:"complexity_required"`
}

func (r passwordPolicyRow) toModel() model.PasswordPolicy {
	return model.PasswordPolicy{
		HistoryLength: r.HistoryLength, MaxAgeDays: r.MaxAgeDays,
		MinAgeDays: r.MinAgeDays, MinLength: r.MinLength, ComplexityRequired: r.ComplexityRequired,
	}
}

func (q *queries) GetByPath(ctx context.Context, components []string) (*model.Directory, error) {
	var row directoryRow
	err := q.q.GetContext(ctx, &row, `
		SELECT d.* FROM directories d
		JOIN paths p ON p.directory_id = d.id
		WHERE p.components = $1::text[]`, pq.Array(components))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres: GetByPath")
	}
	return row.toModel(), nil
}

func (q *queries) GetByID(ctx context.Context, id int64) (*model.Directory, error) {
	var row directoryRow
	err := q.q.GetContext(ctx, &row, `SELECT * FROM directories WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres: GetByID")
	}
	return row.toModel(), nil
}

func (q *queries) Children(ctx context.Context, parentID int64) ([]*model.Directory, error) {
	var rows []directoryRow
	if err := q.q.SelectContext(ctx, &rows, `SELECT * FROM directories WHERE parent_id = $1 ORDER BY name`, parentID); err != nil {
		return nil, errors.Wrap(err, "postgres: Children")
	}
	out := make([]*model.Directory, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (q *queries) HasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM directories WHERE parent_id = $1)`, id)
	return exists, errors.Wrap(err, "postgres: HasChildren")
}

func (q *queries) Attributes(ctx context.Context, directoryID int64) ([]model.Attribute, error) {
	var rows []attributeRow
	if err := q.q.SelectContext(ctx, &rows, `SELECT id, directory_id, name, value, bvalue FROM attributes WHERE directory_id = $1`, directoryID); err != nil {
		return nil, errors.Wrap(err, "postgres: Attributes")
	}
	out := make([]model.Attribute, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (q *queries) CreateEntry(ctx context.Context, parentID int64, objectClass, name string, attrs []model.Attribute) (*model.Directory, error) {
	var parentPath pq.StringArray
	if err := q.q.GetContext(ctx, &parentPath, `SELECT components FROM paths WHERE directory_id = $1`, parentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "postgres: load parent path")
	}

	var conflict bool
	if err := q.q.GetContext(ctx, &conflict, `
		SELECT EXISTS (SELECT 1 FROM directories WHERE parent_id = $1 AND lower(name) = lower($2))`, parentID, name); err != nil {
		return nil, errors.Wrap(err, "postgres: conflict check")
	}
	if conflict {
		return nil, store.ErrConflict
	}

	var row directoryRow
	err := q.q.GetContext(ctx, &row, `
		INSERT INTO directories (parent_id, object_class, name) VALUES ($1, $2, $3)
		RETURNING *`, parentID, objectClass, name)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: insert directory")
	}

	newPath := append(append([]string{}, parentPath...), name)
	if _, err := q.q.ExecContext(ctx, `INSERT INTO paths (directory_id, components) VALUES ($1, $2)`, row.ID, pq.Array(newPath)); err != nil {
		return nil, errors.Wrap(err, "postgres: insert path")
	}

	for _, a := range attrs {
		if _, err := q.q.ExecContext(ctx, `INSERT INTO attributes (directory_id, name, value, bvalue) VALUES ($1, $2, $3, $4)`,
			row.ID, a.Name, a.Value, a.BValue); err != nil {
			return nil, errors.Wrap(err, "postgres: insert attribute")
		}
	}
	return row.toModel(), nil
}

func (q *queries) DeleteEntry(ctx context.Context, id int64) error {
	has, err := q.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return store.ErrHasChildren
	}
	_, err = q.q.ExecContext(ctx, `DELETE FROM directories WHERE id = $1`, id)
	return errors.Wrap(err, "postgres: DeleteEntry")
}

func (q *queries) RenameSubtree(ctx context.Context, id int64, newParentID int64, newName string) error {
	var newParentPath pq.StringArray
	if err := q.q.GetContext(ctx, &newParentPath, `SELECT components FROM paths WHERE directory_id = $1`, newParentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return errors.Wrap(err, "postgres: load new parent path")
	}
	var oldPath pq.StringArray
	if err := q.q.GetContext(ctx, &oldPath, `SELECT components FROM paths WHERE directory_id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return errors.Wrap(err, "postgres: load entry path")
	}

	var conflict bool
	if err := q.q.GetContext(ctx, &conflict, `
		SELECT EXISTS (SELECT 1 FROM directories WHERE parent_id = $1 AND lower(name) = lower($2) AND id <> $3)`,
		newParentID, newName, id); err != nil {
		return errors.Wrap(err, "postgres: conflict check")
	}
	if conflict {
		return store.ErrConflict
	}

	if _, err := q.q.ExecContext(ctx, `UPDATE directories SET parent_id = $1, name = $2, when_changed = now() WHERE id = $3`,
		newParentID, newName, id); err != nil {
		return errors.Wrap(err, "postgres: rename entry")
	}

	newPath := append(append([]string{}, newParentPath...), newName)
	if _, err := q.q.ExecContext(ctx, `UPDATE paths SET components = $1 WHERE directory_id = $2`, pq.Array(newPath), id); err != nil {
		return errors.Wrap(err, "postgres: update entry path")
	}

	oldDepth := len(oldPath)
	if _, err := q.q.ExecContext(ctx, `
		UPDATE paths SET components = $1 || components[$2:array_length(components, 1)]
		WHERE directory_id <> $3 AND array_length(components, 1) >= $2
		  AND components[1:$4] = $5`,
		pq.Array(newPath), oldDepth+1, id, oldDepth, pq.Array([]string(oldPath))); err != nil {
		return errors.Wrap(err, "postgres: update descendant paths")
	}
	return nil
}

func (q *queries) AddAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error {
	for _, v := range values {
		var exists bool
		if err := q.q.GetContext(ctx, &exists, `
			SELECT EXISTS (SELECT 1 FROM attributes WHERE directory_id = $1 AND lower(name) = lower($2) AND value = $3)`,
			directoryID, name, v); err != nil {
			return errors.Wrap(err, "postgres: attribute conflict check")
		}
		if exists {
			return store.ErrAttributeExists
		}
		if _, err := q.q.ExecContext(ctx, `INSERT INTO attributes (directory_id, name, value) VALUES ($1, $2, $3)`, directoryID, name, v); err != nil {
			return errors.Wrap(err, "postgres: insert attribute value")
		}
	}
	return nil
}

func (q *queries) DeleteAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error {
	if len(values) == 0 {
		_, err := q.q.ExecContext(ctx, `DELETE FROM attributes WHERE directory_id = $1 AND lower(name) = lower($2)`, directoryID, name)
		return errors.Wrap(err, "postgres: delete attribute values")
	}
	_, err := q.q.ExecContext(ctx, `
		DELETE FROM attributes WHERE directory_id = $1 AND lower(name) = lower($2) AND value = ANY($3)`,
		directoryID, name, pq.Array(values))
	return errors.Wrap(err, "postgres: delete attribute values")
}

func (q *queries) ReplaceAttributeValues(ctx context.Context, directoryID int64, name string, values []string) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM attributes WHERE directory_id = $1 AND lower(name) = lower($2)`, directoryID, name); err != nil {
		return errors.Wrap(err, "postgres: clear attribute values")
	}
	for _, v := range values {
		if _, err := q.q.ExecContext(ctx, `INSERT INTO attributes (directory_id, name, value) VALUES ($1, $2, $3)`, directoryID, name, v); err != nil {
			return errors.Wrap(err, "postgres: insert replaced attribute value")
		}
	}
	return nil
}

func (q *queries) GetUserByPrincipal(ctx context.Context, principal string) (*model.User, error) {
	var row userRow
	err := q.q.GetContext(ctx, &row, `
		SELECT * FROM users WHERE lower(user_principal_name) = lower($1) OR lower(sam_account_name) = lower($1)`, principal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres: GetUserByPrincipal")
	}
	return row.toModel(), nil
}

func (q *queries) GetUserByDirectoryID(ctx context.Context, directoryID int64) (*model.User, error) {
	var row userRow
	err := q.q.GetContext(ctx, &row, `SELECT * FROM users WHERE directory_id = $1`, directoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres: GetUserByDirectoryID")
	}
	return row.toModel(), nil
}

func (q *queries) UpdatePasswordHash(ctx context.Context, directoryID int64, hash string, history []string) error {
	_, err := q.q.ExecContext(ctx, `UPDATE users SET password_hash = $1, password_history = $2 WHERE directory_id = $3`,
		hash, pq.Array(history), directoryID)
	return errors.Wrap(err, "postgres: UpdatePasswordHash")
}

func (q *queries) StampLastLogon(ctx context.Context, directoryID int64) error {
	_, err := q.q.ExecContext(ctx, `UPDATE users SET last_logon = now() WHERE directory_id = $1`, directoryID)
	return errors.Wrap(err, "postgres: StampLastLogon")
}

func (q *queries) GroupMembers(ctx context.Context, groupDirectoryID int64) ([]int64, []int64, error) {
	var userIDs []int64
	if err := q.q.SelectContext(ctx, &userIDs, `
		SELECT user_id FROM user_membership WHERE group_id = $1`, groupDirectoryID); err != nil {
		return nil, nil, errors.Wrap(err, "postgres: GroupMembers users")
	}
	var groupIDs []int64
	if err := q.q.SelectContext(ctx, &groupIDs, `
		SELECT child_id FROM group_membership WHERE parent_id = $1`, groupDirectoryID); err != nil {
		return nil, nil, errors.Wrap(err, "postgres: GroupMembers groups")
	}
	return userIDs, groupIDs, nil
}

// IsTransitiveMember walks a user's direct groups (user_membership) and
// then ascends nested group->group edges (group_membership) looking for
// groupID, bounded by maxDepth. userID is always a user's directory_id
// here: AddGroupToGroup's own cycle check instead asks "is parentGroupID
// reachable by walking up from childGroupID", which is the same ascent
// with the starting set taken from group_membership rather than
// user_membership (see groupReachesAncestor below).
func (q *queries) IsTransitiveMember(ctx context.Context, userID, groupID int64, maxDepth int) (bool, error) {
	var member bool
	err := q.q.GetContext(ctx, &member, `
		WITH RECURSIVE ancestry(id, depth) AS (
			SELECT group_id, 1 FROM user_membership WHERE user_id = $1
			UNION ALL
			SELECT gm.parent_id, ancestry.depth + 1
			FROM group_membership gm JOIN ancestry ON gm.child_id = ancestry.id
			WHERE ancestry.depth < $3
		)
		SELECT EXISTS (SELECT 1 FROM ancestry WHERE id = $2)`, userID, groupID, maxDepth)
	return member, errors.Wrap(err, "postgres: IsTransitiveMember")
}

// groupReachesAncestor reports whether walking group_membership edges
// upward from startGroupID ever reaches ancestorGroupID, used by
// AddGroupToGroup's cycle check (a pure group->group ascent, unlike
// IsTransitiveMember which starts from a user's user_membership rows).
func (q *queries) groupReachesAncestor(ctx context.Context, startGroupID, ancestorGroupID int64, maxDepth int) (bool, error) {
	var reaches bool
	err := q.q.GetContext(ctx, &reaches, `
		WITH RECURSIVE ancestry(id, depth) AS (
			SELECT parent_id, 1 FROM group_membership WHERE child_id = $1
			UNION ALL
			SELECT gm.parent_id, ancestry.depth + 1
			FROM group_membership gm JOIN ancestry ON gm.child_id = ancestry.id
			WHERE ancestry.depth < $3
		)
		SELECT EXISTS (SELECT 1 FROM ancestry WHERE id = $2)`, startGroupID, ancestorGroupID, maxDepth)
	return reaches, errors.Wrap(err, "postgres: groupReachesAncestor")
}

func (q *queries) AddUserToGroup(ctx context.Context, userDirectoryID, groupDirectoryID int64) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO user_membership (user_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userDirectoryID, groupDirectoryID)
	return errors.Wrap(err, "postgres: AddUserToGroup")
}

func (q *queries) AddGroupToGroup(ctx context.Context, childGroupID, parentGroupID int64) error {
	if childGroupID == parentGroupID {
		return store.ErrCycle
	}
	cyclic, err := q.groupReachesAncestor(ctx, parentGroupID, childGroupID, maxMemberOfDepth)
	if err != nil {
		return err
	}
	if cyclic {
		return store.ErrCycle
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO group_membership (child_id, parent_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		childGroupID, parentGroupID)
	return errors.Wrap(err, "postgres: AddGroupToGroup")
}

func (q *queries) RemoveUserFromGroup(ctx context.Context, userDirectoryID, groupDirectoryID int64) error {
	_, err := q.q.ExecContext(ctx, `DELETE FROM user_membership WHERE user_id = $1 AND group_id = $2`, userDirectoryID, groupDirectoryID)
	return errors.Wrap(err, "postgres: RemoveUserFromGroup")
}

func (q *queries) RemoveGroupFromGroup(ctx context.Context, childGroupID, parentGroupID int64) error {
	_, err := q.q.ExecContext(ctx, `DELETE FROM group_membership WHERE child_id = $1 AND parent_id = $2`, childGroupID, parentGroupID)
	return errors.Wrap(err, "postgres: RemoveGroupFromGroup")
}

// CreateUser and CreateGroup insert a specialisation row for a Directory
// entry CreateEntry just created in the same UnitOfWork: directoryID is
// always fresh, so a conflict here would mean CreateEntry's own sibling
// check raced or a caller reused an ID, not a sAMAccountName/UPN
// collision (unique indexes on those still apply via the INSERT).
func (q *queries) CreateUser(ctx context.Context, directoryID int64, samAccountName, userPrincipalName, displayName, mail, passwordHash string) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO users (directory_id, sam_account_name, user_principal_name, display_name, mail, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		directoryID, samAccountName, userPrincipalName, displayName, mail, passwordHash)
	return errors.Wrap(err, "postgres: CreateUser")
}

func (q *queries) CreateGroup(ctx context.Context, directoryID int64) error {
	_, err := q.q.ExecContext(ctx, `INSERT INTO groups (directory_id) VALUES ($1)`, directoryID)
	return errors.Wrap(err, "postgres: CreateGroup")
}

// Search streams matching entries on an unbuffered channel; each send also
// selects on ctx.Done, so the caller (internal/handler.Search) can stop
// early on sizeLimit or Abandon by cancelling ctx without leaving the
// goroutine blocked.
func (q *queries) Search(ctx context.Context, query store.Query) (<-chan *model.Directory, <-chan error) {
	out := make(chan *model.Directory)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		scopeClause, scopeArgs, err := scopeSQL(q, ctx, query)
		if err != nil {
			errc <- err
			return
		}
		args := append([]interface{}{}, scopeArgs...)
		predClause, err := compilePredicate(query.Predicate, &args)
		if err != nil {
			errc <- err
			return
		}

		stmt := "SELECT d.* FROM directories d WHERE " + scopeClause + " AND " + predClause

		rows, err := queryxRows(ctx, q.q, stmt, args)
		if err != nil {
			errc <- errors.Wrap(err, "postgres: Search")
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row directoryRow
			if err := rows.StructScan(&row); err != nil {
				errc <- errors.Wrap(err, "postgres: Search scan")
				return
			}
			select {
			case out <- row.toModel():
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errc <- errors.Wrap(err, "postgres: Search rows")
		}
	}()

	return out, errc
}

func scopeSQL(q *queries, ctx context.Context, query store.Query) (string, []interface{}, error) {
	switch query.Scope {
	case store.ScopeBaseObject:
		return "d.id = $1", []interface{}{query.Base}, nil
	case store.ScopeSingleLevel:
		return "d.parent_id = $1", []interface{}{query.Base}, nil
	default:
		var basePath pq.StringArray
		if err := q.q.GetContext(ctx, &basePath, `SELECT components FROM paths WHERE directory_id = $1`, query.Base); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", nil, store.ErrNotFound
			}
			return "", nil, errors.Wrap(err, "postgres: Search base path")
		}
		depth := len(basePath)
		clause := `d.id IN (SELECT directory_id FROM paths WHERE array_length(components, 1) >= $1 AND components[1:$1] = $2)`
		if query.Scope == store.ScopeSubordinateSubtree {
			clause += " AND d.id <> $3"
			return clause, []interface{}{depth, pq.Array([]string(basePath)), query.Base}, nil
		}
		return clause, []interface{}{depth, pq.Array([]string(basePath))}, nil
	}
}

// queryxRows issues stmt against whichever execer q wraps via a type
// switch, since execer itself only exposes Get/Select/Exec — Search needs
// row-by-row iteration instead.
func queryxRows(ctx context.Context, e execer, stmt string, args []interface{}) (*sqlx.Rows, error) {
	type rowQueryer interface {
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	}
	rq, ok := e.(rowQueryer)
	if !ok {
		return nil, errors.New("postgres: execer does not support row iteration")
	}
	return rq.QueryxContext(ctx, stmt, args...)
}

func (q *queries) Settings(ctx context.Context) (map[string]string, error) {
	var rows []model.CatalogueSetting
	if err := q.q.SelectContext(ctx, &rows, `SELECT name, value FROM catalogue_settings`); err != nil {
		return nil, errors.Wrap(err, "postgres: Settings")
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Value
	}
	return out, nil
}

func (q *queries) NetworkPolicies(ctx context.Context) ([]model.NetworkPolicy, error) {
	var rows []networkPolicyRow
	if err := q.q.SelectContext(ctx, &rows, `SELECT * FROM network_policies WHERE enabled ORDER BY priority ASC`); err != nil {
		return nil, errors.Wrap(err, "postgres: NetworkPolicies")
	}
	out := make([]model.NetworkPolicy, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (q *queries) PasswordPolicy(ctx context.Context) (*model.PasswordPolicy, error) {
	var row passwordPolicyRow
	if err := q.q.GetContext(ctx, &row, `SELECT * FROM password_policies LIMIT 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			p := model.PasswordPolicy{}
			return &p, nil
		}
		return nil, errors.Wrap(err, "postgres: PasswordPolicy")
	}
	p := row.toModel()
	return &p, nil
}

func (q *queries) SearchableUserColumns() []string     { return userColumnNames() }
func (q *queries) SearchableDirectoryColumns() []string { return directoryColumnNames() }

var _ store.DirectoryStore = (*queries)(nil)
