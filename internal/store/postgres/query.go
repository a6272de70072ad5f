package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/MultifactorLab/MultiDirectory/internal/filter"
	"github.com/MultifactorLab/MultiDirectory/internal/store"
)

// directoryColumns maps the routed Column.Name (lowercase attribute name)
// to its actual SQL identifier on the directories table. Only objectClass
// has a dedicated column; every other directory-level attribute (cn, ou, …)
// is also written to the attributes table on Add and so falls through to
// the attribute-table EXISTS clause like any other Attribute-routed column.
var directoryColumns = map[string]string{
	"objectclass": "object_class",
}

// userColumns maps the routed Column.Name to its SQL identifier on users.
var userColumns = map[string]string{
	"uid":               "sam_account_name",
	"samaccountname":    "sam_account_name",
	"userprincipalname": "user_principal_name",
	"mail":              "mail",
}

func directoryColumnNames() []string {
	out := make([]string, 0, len(directoryColumns))
	for k := range directoryColumns {
		out = append(out, k)
	}
	return out
}

func userColumnNames() []string {
	out := make([]string, 0, len(userColumns))
	for k := range userColumns {
		out = append(out, k)
	}
	return out
}

// compilePredicate renders a store.Predicate (always a *filter.Predicate
// produced by internal/filter) into a SQL boolean expression referencing
// the "d" alias (directories), appending its positional args onto *args
// (already primed with any scope-clause args) so placeholders number
// continuously across the whole statement.
func compilePredicate(p store.Predicate, args *[]interface{}) (string, error) {
	if p == nil {
		return "TRUE", nil
	}
	fp, ok := p.(*filter.Predicate)
	if !ok {
		return "", fmt.Errorf("postgres: unsupported predicate type %T", p)
	}
	return nodeSQL(fp.Root, args)
}

func nodeSQL(n filter.Node, args *[]interface{}) (string, error) {
	switch t := n.(type) {
	case filter.AndNode:
		return joinChildren(t.Children, "AND", args)
	case filter.OrNode:
		return joinChildren(t.Children, "OR", args)
	case filter.NotNode:
		inner, err := nodeSQL(t.Child, args)
		if err != nil {
			return "", err
		}
		return "(NOT " + inner + ")", nil
	case filter.CompareNode:
		return compareSQL(t, args)
	case filter.SubstringNode:
		return substringSQL(t, args)
	case filter.PresentNode:
		return presentSQL(t, args)
	case filter.MemberOfNode:
		return memberOfSQL(t, args)
	default:
		return "", fmt.Errorf("postgres: unsupported filter node %T", n)
	}
}

func joinChildren(children []filter.Node, op string, args *[]interface{}) (string, error) {
	parts := make([]string, len(children))
	for i, c := range children {
		s, err := nodeSQL(c, args)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", nil
}

func bind(args *[]interface{}, v interface{}) string {
	*args = append(*args, v)
	return fmt.Sprintf("$%d", len(*args))
}

func sqlOp(op filter.Op) string {
	switch op {
	case filter.OpGreaterOrEqual:
		return ">="
	case filter.OpLessOrEqual:
		return "<="
	case filter.OpApproxAsInequality:
		return "<>"
	default:
		return "="
	}
}

func compareSQL(n filter.CompareNode, args *[]interface{}) (string, error) {
	switch n.Column.Table {
	case filter.TableDirectory:
		col, ok := directoryColumns[n.Column.Name]
		if !ok {
			return "", fmt.Errorf("postgres: no directory column for %q", n.Column.Name)
		}
		return fmt.Sprintf("d.%s %s %s", col, sqlOp(n.Op), bind(args, n.Value)), nil
	case filter.TableUser:
		col, ok := userColumns[n.Column.Name]
		if !ok {
			return "", fmt.Errorf("postgres: no user column for %q", n.Column.Name)
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM users u WHERE u.directory_id = d.id AND u.%s %s %s)",
			col, sqlOp(n.Op), bind(args, n.Value)), nil
	default:
		nameArg := bind(args, n.Column.Name)
		valueArg := bind(args, n.Value)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM attributes a WHERE a.directory_id = d.id AND lower(a.name) = lower(%s) AND a.value %s %s)",
			nameArg, sqlOp(n.Op), valueArg), nil
	}
}

func substringSQL(n filter.SubstringNode, args *[]interface{}) (string, error) {
	pattern := substringLikePattern(n)
	switch n.Column.Table {
	case filter.TableDirectory:
		col, ok := directoryColumns[n.Column.Name]
		if !ok {
			return "", fmt.Errorf("postgres: no directory column for %q", n.Column.Name)
		}
		return fmt.Sprintf("d.%s LIKE %s", col, bind(args, pattern)), nil
	case filter.TableUser:
		col, ok := userColumns[n.Column.Name]
		if !ok {
			return "", fmt.Errorf("postgres: no user column for %q", n.Column.Name)
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM users u WHERE u.directory_id = d.id AND u.%s LIKE %s)",
			col, bind(args, pattern)), nil
	default:
		nameArg := bind(args, n.Column.Name)
		patternArg := bind(args, pattern)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM attributes a WHERE a.directory_id = d.id AND lower(a.name) = lower(%s) AND a.value LIKE %s)",
			nameArg, patternArg), nil
	}
}

// substringLikePattern stitches initial/any/final into one SQL LIKE
// pattern; the any-components are typically absent in practice (multiple
// '*any*' segments are rare) so they're simply concatenated in order.
func substringLikePattern(n filter.SubstringNode) string {
	var b strings.Builder
	if n.Initial != "" {
		b.WriteString(n.Initial)
	}
	b.WriteByte('%')
	for _, a := range n.Any {
		b.WriteString(a)
		b.WriteByte('%')
	}
	if n.Final != "" {
		b.WriteString(n.Final)
	}
	return b.String()
}

func presentSQL(n filter.PresentNode, args *[]interface{}) (string, error) {
	switch n.Column.Table {
	case filter.TableDirectory:
		col, ok := directoryColumns[n.Column.Name]
		if !ok {
			return "", fmt.Errorf("postgres: no directory column for %q", n.Column.Name)
		}
		return fmt.Sprintf("d.%s <> ''", col), nil
	case filter.TableUser:
		col, ok := userColumns[n.Column.Name]
		if !ok {
			return "", fmt.Errorf("postgres: no user column for %q", n.Column.Name)
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM users u WHERE u.directory_id = d.id AND u.%s <> '')", col), nil
	default:
		nameArg := bind(args, n.Column.Name)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM attributes a WHERE a.directory_id = d.id AND lower(a.name) = lower(%s))", nameArg), nil
	}
}

// maxMemberOfDepth bounds the recursive group-membership walk a memberOf
// filter performs, matching the Handler.MaxTransitiveDepth default used
// elsewhere for the same invariant.
const maxMemberOfDepth = 32

func memberOfSQL(n filter.MemberOfNode, args *[]interface{}) (string, error) {
	pathArg := bind(args, pq.Array(n.Path))
	expr := fmt.Sprintf(`(WITH RECURSIVE ancestry(id, depth) AS (
		SELECT direct.id, 1 FROM (
			SELECT parent_id AS id FROM group_membership WHERE child_id = d.id
			UNION ALL
			SELECT group_id FROM user_membership WHERE user_id = d.id
		) direct
		UNION ALL
		SELECT gm.parent_id, ancestry.depth + 1
		FROM group_membership gm JOIN ancestry ON gm.child_id = ancestry.id
		WHERE ancestry.depth < %d
	) SELECT EXISTS (SELECT 1 FROM ancestry WHERE id = (SELECT directory_id FROM paths WHERE components = %s)))`,
		maxMemberOfDepth, pathArg)
	if n.Negate {
		return "(NOT " + expr + ")", nil
	}
	return expr, nil
}
