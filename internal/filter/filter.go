// Package filter translates an LDAP search filter, in either its ASN.1
// wire form (internal/ldap.Filter) or RFC 4515 textual form, into a
// store.Predicate: a small compiled expression tree the store package's
// query layer walks to build the actual backend query.
package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/store"
)

// Op is a leaf comparison operator.
type Op int

const (
	OpEqual Op = iota
	OpGreaterOrEqual
	OpLessOrEqual
	// OpApproxAsInequality implements the documented `~=` deviation: this
	// server maps approxMatch to inequality rather than RFC 4511's
	// similarity match, gated by Options.ApproximateMatchAsInequality.
	OpApproxAsInequality
)

// Table identifies which relation a resolved column lives on.
type Table int

const (
	TableDirectory Table = iota
	TableUser
	TableAttribute
)

// Column is a routed attribute reference, resolved per §4.D's rules:
// indexed User/Directory columns compare directly; anything else falls
// through to an outer join against Attribute.
type Column struct {
	Table Table
	Name  string
}

// Node is one compiled predicate tree node. The concrete types below are
// the only implementations; store/postgres type-switches over them.
type Node interface {
	node()
}

type AndNode struct{ Children []Node }
type OrNode struct{ Children []Node }
type NotNode struct{ Child Node }

type CompareNode struct {
	Column Column
	Op     Op
	Value  string
}

type SubstringNode struct {
	Column  Column
	Initial string
	Any     []string
	Final   string
}

type PresentNode struct{ Column Column }

// MemberOfNode resolves to Directory.id ∈ (users-of-group ∪
// child-groups-of-group), computed against the group addressed by Path.
type MemberOfNode struct {
	Path   []string
	Negate bool
}

func (AndNode) node()       {}
func (OrNode) node()        {}
func (NotNode) node()       {}
func (CompareNode) node()   {}
func (SubstringNode) node() {}
func (PresentNode) node()   {}
func (MemberOfNode) node()  {}

// Predicate wraps a compiled Node so it satisfies store.Predicate without
// the store package importing this one (avoiding an import cycle back
// from store into filter).
type Predicate struct{ Root Node }

func (Predicate) predicate() {}

// substringPattern implements the initial/any/final SQL LIKE mapping
// exactly as filter_interpreter.py's _get_substring does.
func substringPattern(kind int, value string) string {
	switch kind {
	case 0:
		return value + "%"
	case 1:
		return "%" + value + "%"
	case 2:
		return "%" + value
	}
	return value
}

// Options tunes interpreter behavior per the spec's documented Open
// Question resolutions.
type Options struct {
	// ApproximateMatchAsInequality implements `~=` as inequality rather
	// than RFC 4511 approximate match; default true. When false, `~=`
	// compiles to equality. See SPEC_FULL.md §9.
	ApproximateMatchAsInequality bool
	// WarnOnApproxMatch is invoked each time an approxMatch leaf is
	// compiled as inequality, so callers can surface the deviation in logs.
	WarnOnApproxMatch func()
}

// DefaultOptions matches the spec's default resolution of the `~=` open
// question.
func DefaultOptions() Options {
	return Options{ApproximateMatchAsInequality: true}
}

// columnRouter resolves an attribute name to a User/Directory column or
// falls through to the Attribute table, per §4.D routing rules 1-2.
type columnRouter struct {
	userCols, dirCols map[string]struct{}
}

func newColumnRouter(s store.DirectoryStore) columnRouter {
	r := columnRouter{userCols: map[string]struct{}{}, dirCols: map[string]struct{}{}}
	for _, c := range s.SearchableUserColumns() {
		r.userCols[strings.ToLower(c)] = struct{}{}
	}
	for _, c := range s.SearchableDirectoryColumns() {
		r.dirCols[strings.ToLower(c)] = struct{}{}
	}
	return r
}

func (r columnRouter) resolve(attr string) Column {
	a := strings.ToLower(attr)
	if a == "objectcategory" {
		a = "objectclass"
	}
	if _, ok := r.userCols[a]; ok {
		return Column{Table: TableUser, Name: a}
	}
	if _, ok := r.dirCols[a]; ok {
		return Column{Table: TableDirectory, Name: a}
	}
	return Column{Table: TableAttribute, Name: a}
}

// Compile translates a wire-form Filter into a Predicate, routing
// memberOf leaves and indexed columns per §4.D.
func Compile(ctx context.Context, f *ldap.Filter, s store.DirectoryStore, opts Options) (*Predicate, error) {
	router := newColumnRouter(s)
	root, err := compileNode(f, router, opts)
	if err != nil {
		return nil, err
	}
	return &Predicate{Root: root}, nil
}

func compileNode(f *ldap.Filter, router columnRouter, opts Options) (Node, error) {
	switch f.Type {
	case ldap.FilterTypeAnd, ldap.FilterTypeOr:
		children, ok := f.Data.([]ldap.Filter)
		if !ok {
			return nil, fmt.Errorf("filter: malformed and/or filter")
		}
		if len(children) == 0 {
			return nil, fmt.Errorf("filter: empty and/or filter is a protocol error")
		}
		nodes := make([]Node, 0, len(children))
		for i := range children {
			n, err := compileNode(&children[i], router, opts)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		if f.Type == ldap.FilterTypeAnd {
			return AndNode{Children: nodes}, nil
		}
		return OrNode{Children: nodes}, nil
	case ldap.FilterTypeNot:
		inner, ok := f.Data.(*ldap.Filter)
		if !ok {
			return nil, fmt.Errorf("filter: malformed not filter")
		}
		n, err := compileNode(inner, router, opts)
		if err != nil {
			return nil, err
		}
		return NotNode{Child: n}, nil
	case ldap.FilterTypeEqual, ldap.FilterTypeGreaterOrEqual, ldap.FilterTypeLessOrEqual, ldap.FilterTypeApproxMatch:
		ava, ok := f.Data.(*ldap.AttributeValueAssertion)
		if !ok {
			return nil, fmt.Errorf("filter: malformed comparison filter")
		}
		if strings.EqualFold(ava.Description, "memberOf") {
			dn, err := ldap.ParseDN(ava.Value)
			if err != nil {
				return nil, err
			}
			return MemberOfNode{Path: dnComponents(dn)}, nil
		}
		col := router.resolve(ava.Description)
		op := opFromFilterType(f.Type, opts)
		return CompareNode{Column: col, Op: op, Value: ava.Value}, nil
	case ldap.FilterTypeSubstrings:
		sf, ok := f.Data.(*ldap.SubstringFilter)
		if !ok {
			return nil, fmt.Errorf("filter: malformed substring filter")
		}
		col := router.resolve(sf.Type)
		return SubstringNode{Column: col, Initial: sf.Initial, Any: sf.Any, Final: sf.Final}, nil
	case ldap.FilterTypePresent:
		attr, _ := f.Data.(string)
		return PresentNode{Column: router.resolve(attr)}, nil
	case ldap.FilterTypeExtensibleMatch:
		m, ok := f.Data.(*ldap.MatchingRuleAssertion)
		if !ok {
			return nil, fmt.Errorf("filter: malformed extensible match filter")
		}
		if strings.EqualFold(m.Type, "memberOf") {
			dn, err := ldap.ParseDN(m.MatchValue)
			if err != nil {
				return nil, err
			}
			return MemberOfNode{Path: dnComponents(dn)}, nil
		}
		return CompareNode{Column: router.resolve(m.Type), Op: OpEqual, Value: m.MatchValue}, nil
	default:
		return nil, fmt.Errorf("filter: unsupported filter type %d", f.Type)
	}
}

func opFromFilterType(t uint8, opts Options) Op {
	switch t {
	case ldap.FilterTypeGreaterOrEqual:
		return OpGreaterOrEqual
	case ldap.FilterTypeLessOrEqual:
		return OpLessOrEqual
	case ldap.FilterTypeApproxMatch:
		if !opts.ApproximateMatchAsInequality {
			return OpEqual
		}
		if opts.WarnOnApproxMatch != nil {
			opts.WarnOnApproxMatch()
		}
		return OpApproxAsInequality
	default:
		return OpEqual
	}
}

// dnComponents converts a parsed DN (leftmost/leaf-first, matching wire
// order) to Path order (root-first).
func dnComponents(dn ldap.DN) []string {
	out := make([]string, len(dn))
	for i, rdn := range dn {
		out[len(dn)-1-i] = rdn.String()
	}
	return out
}

// CompileString parses an RFC 4515 textual filter directly into a
// Predicate, for callers that never touch the BER wire form.
func CompileString(ctx context.Context, expr string, s store.DirectoryStore, opts Options) (*Predicate, error) {
	router := newColumnRouter(s)
	p := &stringParser{input: expr, router: router, opts: opts}
	node, rest, err := p.parseFilter(expr)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("filter: trailing input %q", rest)
	}
	return &Predicate{Root: node}, nil
}

type stringParser struct {
	input  string
	router columnRouter
	opts   Options
}

// parseFilter parses one "(...)" group, returning the remaining input.
func (p *stringParser) parseFilter(s string) (Node, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return nil, s, fmt.Errorf("filter: expected '(' at %q", s)
	}
	s = s[1:]
	if len(s) == 0 {
		return nil, s, fmt.Errorf("filter: unterminated filter")
	}
	switch s[0] {
	case '&', '|':
		isAnd := s[0] == '&'
		s = s[1:]
		var nodes []Node
		for {
			s = strings.TrimSpace(s)
			if strings.HasPrefix(s, ")") {
				s = s[1:]
				break
			}
			n, rest, err := p.parseFilter(s)
			if err != nil {
				return nil, s, err
			}
			nodes = append(nodes, n)
			s = rest
		}
		if len(nodes) == 0 {
			return nil, s, fmt.Errorf("filter: empty and/or filter is a protocol error")
		}
		if isAnd {
			return AndNode{Children: nodes}, s, nil
		}
		return OrNode{Children: nodes}, s, nil
	case '!':
		s = s[1:]
		n, rest, err := p.parseFilter(s)
		if err != nil {
			return nil, s, err
		}
		rest = strings.TrimSpace(rest)
		if !strings.HasPrefix(rest, ")") {
			return nil, rest, fmt.Errorf("filter: expected ')' after not-filter")
		}
		return NotNode{Child: n}, rest[1:], nil
	default:
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return nil, s, fmt.Errorf("filter: unterminated filter item")
		}
		item := s[:end]
		rest := s[end+1:]
		n, err := p.parseItem(item)
		if err != nil {
			return nil, rest, err
		}
		return n, rest, nil
	}
}

// parseItem parses one leaf `attr<op>value` expression.
func (p *stringParser) parseItem(item string) (Node, error) {
	for _, op := range []string{">=", "<=", "~="} {
		if idx := strings.Index(item, op); idx >= 0 {
			attr, val := item[:idx], item[idx+len(op):]
			return p.leaf(attr, op, val)
		}
	}
	idx := strings.IndexByte(item, '=')
	if idx < 0 {
		return nil, fmt.Errorf("filter: malformed filter item %q", item)
	}
	attr, val := item[:idx], item[idx+1:]
	return p.leaf(attr, "=", val)
}

func (p *stringParser) leaf(attr, op, val string) (Node, error) {
	attr = strings.TrimSpace(attr)
	if val == "*" {
		return PresentNode{Column: p.router.resolve(attr)}, nil
	}
	if strings.EqualFold(attr, "memberOf") && op == "=" {
		dn, err := ldap.ParseDN(val)
		if err != nil {
			return nil, err
		}
		return MemberOfNode{Path: dnComponents(dn)}, nil
	}
	col := p.router.resolve(attr)
	if strings.Contains(val, "*") {
		initial, any, final := splitSubstring(val)
		return SubstringNode{Column: col, Initial: initial, Any: any, Final: final}, nil
	}
	switch op {
	case ">=":
		return CompareNode{Column: col, Op: OpGreaterOrEqual, Value: val}, nil
	case "<=":
		return CompareNode{Column: col, Op: OpLessOrEqual, Value: val}, nil
	case "~=":
		return CompareNode{Column: col, Op: opFromFilterType(ldap.FilterTypeApproxMatch, p.opts), Value: val}, nil
	default:
		return CompareNode{Column: col, Op: OpEqual, Value: val}, nil
	}
}

// splitSubstring splits a wildcarded RFC 4515 value into its
// initial/any/final parts, matching the ASN.1 substring-choice semantics.
func splitSubstring(val string) (initial string, any []string, final string) {
	parts := strings.Split(val, "*")
	if parts[0] != "" {
		initial = parts[0]
	}
	if last := parts[len(parts)-1]; last != "" {
		final = last
	}
	for _, mid := range parts[1 : len(parts)-1] {
		if mid != "" {
			any = append(any, mid)
		}
	}
	return initial, any, final
}

// LikePattern renders a Column/SubstringNode's SQL LIKE pattern using
// the same three-slot mapping as filter_interpreter.py's _get_substring,
// for store implementations that want it pre-built.
func LikePattern(kind int, value string) string {
	return substringPattern(kind, value)
}
