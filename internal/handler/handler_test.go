package handler_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MultifactorLab/MultiDirectory/internal/handler"
	"github.com/MultifactorLab/MultiDirectory/internal/ldap"
	"github.com/MultifactorLab/MultiDirectory/internal/password"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
	"github.com/MultifactorLab/MultiDirectory/internal/store"
	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
)

// Test fixtures use a single-RDN naming context ("dc=test") so Path
// components stay a flat, easy-to-reason-about slice: root-first, one
// entry per RDN level, matching how dnToComponents reverses a DN's
// leftmost(leaf)-first wire order into Path's root-first order.

// newTestConn wires a session.Conn to one end of an in-memory pipe and
// returns the other end for the test to read framed responses from.
func newTestConn(t *testing.T) (*session.Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	conn := session.NewConn(server, nil, false)
	conn.Peer = &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4242}
	return conn, client
}

func readResult(t *testing.T, client net.Conn) *ldap.Result {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := ldap.ReadMessage(client)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	res, err := ldap.GetResult(msg.ProtocolOp.Data)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	return res
}

func newTestHandler(t *testing.T, s *fakeStore) *handler.Handler {
	t.Helper()
	return handler.New(s, zerolog.Nop())
}

func seedBase(s *fakeStore) *model.Directory {
	return s.seed(nil, "domain", "dc=test", []string{"dc=test"}, nil)
}

func TestBindSuccess(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	hash, err := password.Hash("correcthorse")
	if err != nil {
		t.Fatal(err)
	}
	user := s.seed(&base.ID, "user", "cn=jane", []string{"dc=test", "cn=jane"}, nil)
	s.users[user.ID] = &model.User{DirectoryID: user.ID, UserPrincipalName: "jane@example.org", PasswordHash: hash}
	s.policies = []model.NetworkPolicy{{Name: "any", CIDR: "0.0.0.0/0", Enabled: true, Priority: 1}}

	h := newTestHandler(t, s)
	conn, client := newTestConn(t)

	go h.Bind(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.BindRequest{
		Version:     3,
		Name:        "jane@example.org",
		AuthType:    ldap.AuthenticationTypeSimple,
		Credentials: "correcthorse",
	})

	res := readResult(t, client)
	if res.ResultCode != ldap.ResultSuccess {
		t.Fatalf("expected success, got %v: %s", res.ResultCode, res.DiagnosticMessage)
	}
	id, ok := conn.Bound.(*handler.Identity)
	if !ok || id.UPN != "jane@example.org" {
		t.Fatalf("expected Bound identity stamped, got %#v", conn.Bound)
	}
}

func TestBindWrongPasswordIsUniformlyRejected(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	hash, _ := password.Hash("correcthorse")
	user := s.seed(&base.ID, "user", "cn=jane", []string{"dc=test", "cn=jane"}, nil)
	s.users[user.ID] = &model.User{DirectoryID: user.ID, UserPrincipalName: "jane@example.org", PasswordHash: hash}

	h := newTestHandler(t, s)
	conn, client := newTestConn(t)

	go h.Bind(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.BindRequest{
		Version: 3, Name: "jane@example.org", AuthType: ldap.AuthenticationTypeSimple, Credentials: "wrong",
	})
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultInvalidCredentials {
		t.Fatalf("expected invalidCredentials, got %v", res.ResultCode)
	}
	if res.DiagnosticMessage != "invalid credentials" {
		t.Fatalf("expected uniform message, got %q", res.DiagnosticMessage)
	}
}

func TestBindUnknownUserIsUniformlyRejected(t *testing.T) {
	s := newFakeStore()
	seedBase(s)
	h := newTestHandler(t, s)
	conn, client := newTestConn(t)

	go h.Bind(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.BindRequest{
		Version: 3, Name: "nobody@example.org", AuthType: ldap.AuthenticationTypeSimple, Credentials: "whatever",
	})
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultInvalidCredentials || res.DiagnosticMessage != "invalid credentials" {
		t.Fatalf("expected uniform invalidCredentials, got %v %q", res.ResultCode, res.DiagnosticMessage)
	}
}

func TestBindRejectsUnsupportedVersion(t *testing.T) {
	s := newFakeStore()
	h := newTestHandler(t, s)
	conn, client := newTestConn(t)

	go h.Bind(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.BindRequest{Version: 2, AuthType: ldap.AuthenticationTypeSimple})
	res := readResult(t, client)
	if res.ResultCode == ldap.ResultSuccess {
		t.Fatalf("expected rejection of LDAP version 2")
	}
}

func boundConn(t *testing.T, s *fakeStore, id int64) (*session.Conn, net.Conn) {
	conn, client := newTestConn(t)
	conn.Bound = &handler.Identity{DirectoryID: id}
	return conn, client
}

func TestAddCreatesEntryAndRejectsDuplicate(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	h := newTestHandler(t, s)
	conn, client := boundConn(t, s, base.ID)

	req := &ldap.AddRequest{
		Entry: "cn=bob,dc=test",
		Attributes: []ldap.Attribute{
			{Description: "objectclass", Values: []string{"user"}},
			{Description: "cn", Values: []string{"bob"}},
		},
	}
	go h.Add(context.Background(), conn, &ldap.Message{MessageID: 2}, req)
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultSuccess {
		t.Fatalf("expected success, got %v: %s", res.ResultCode, res.DiagnosticMessage)
	}

	go h.Add(context.Background(), conn, &ldap.Message{MessageID: 3}, req)
	res2 := readResult(t, client)
	if res2.ResultCode != ldap.ResultEntryAlreadyExists {
		t.Fatalf("expected entryAlreadyExists, got %v", res2.ResultCode)
	}
}

func TestAddRequiresBind(t *testing.T) {
	s := newFakeStore()
	seedBase(s)
	h := newTestHandler(t, s)
	conn, client := newTestConn(t)

	go h.Add(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.AddRequest{Entry: "cn=x,dc=test"})
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultInsufficientAccessRights {
		t.Fatalf("expected insufficientAccessRights, got %v", res.ResultCode)
	}
}

func TestDeleteRejectsNonLeaf(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	parent := s.seed(&base.ID, "organizationalUnit", "ou=people", []string{"dc=test", "ou=people"}, nil)
	s.seed(&parent.ID, "user", "cn=bob", []string{"dc=test", "ou=people", "cn=bob"}, nil)

	h := newTestHandler(t, s)
	conn, client := boundConn(t, s, base.ID)

	go h.Delete(context.Background(), conn, &ldap.Message{MessageID: 1}, "ou=people,dc=test")
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultNotAllowedOnNonLeaf {
		t.Fatalf("expected notAllowedOnNonLeaf, got %v", res.ResultCode)
	}
}

func TestDeleteLeafSucceeds(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	s.seed(&base.ID, "user", "cn=bob", []string{"dc=test", "cn=bob"}, nil)

	h := newTestHandler(t, s)
	conn, client := boundConn(t, s, base.ID)

	go h.Delete(context.Background(), conn, &ldap.Message{MessageID: 1}, "cn=bob,dc=test")
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultSuccess {
		t.Fatalf("expected success, got %v: %s", res.ResultCode, res.DiagnosticMessage)
	}
}

func TestCompareTrueAndFalse(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	s.seed(&base.ID, "user", "cn=bob", []string{"dc=test", "cn=bob"},
		[]model.Attribute{{Name: "mail", Value: "bob@example.org"}})

	h := newTestHandler(t, s)
	conn, client := boundConn(t, s, base.ID)

	go h.Compare(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.CompareRequest{
		Object: "cn=bob,dc=test", Attribute: "Mail", Value: "bob@example.org",
	})
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultCompareTrue {
		t.Fatalf("expected compareTrue, got %v", res.ResultCode)
	}

	conn2, client2 := boundConn(t, s, base.ID)
	go h.Compare(context.Background(), conn2, &ldap.Message{MessageID: 2}, &ldap.CompareRequest{
		Object: "cn=bob,dc=test", Attribute: "mail", Value: "nope@example.org",
	})
	res2 := readResult(t, client2)
	if res2.ResultCode != ldap.ResultCompareFalse {
		t.Fatalf("expected compareFalse, got %v", res2.ResultCode)
	}
}

func TestModifyDNRenamesSubtree(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	ouA := s.seed(&base.ID, "organizationalUnit", "ou=a", []string{"dc=test", "ou=a"}, nil)
	s.seed(&base.ID, "organizationalUnit", "ou=b", []string{"dc=test", "ou=b"}, nil)
	s.seed(&ouA.ID, "user", "cn=bob", []string{"dc=test", "ou=a", "cn=bob"}, nil)

	h := newTestHandler(t, s)
	conn, client := boundConn(t, s, base.ID)

	go h.ModifyDN(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.ModifyDNRequest{
		Object: "cn=bob,ou=a,dc=test", NewRDN: "cn=bob", NewSuperior: "ou=b,dc=test",
	})
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultSuccess {
		t.Fatalf("expected success, got %v: %s", res.ResultCode, res.DiagnosticMessage)
	}

	if _, err := s.GetByPath(context.Background(), []string{"dc=test", "ou=b", "cn=bob"}); err != nil {
		t.Fatalf("expected entry under new parent: %v", err)
	}
}

func TestModifyAddAndReplaceAttribute(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	entry := s.seed(&base.ID, "user", "cn=bob", []string{"dc=test", "cn=bob"}, nil)

	h := newTestHandler(t, s)
	conn, client := boundConn(t, s, base.ID)

	go h.Modify(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.ModifyRequest{
		Object: "cn=bob,dc=test",
		Changes: []ldap.ModifyChange{
			{Operation: ldap.ModifyAdd, Modification: ldap.Attribute{Description: "mail", Values: []string{"bob@example.org"}}},
		},
	})
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultSuccess {
		t.Fatalf("expected success, got %v: %s", res.ResultCode, res.DiagnosticMessage)
	}

	conn2, client2 := boundConn(t, s, base.ID)
	go h.Modify(context.Background(), conn2, &ldap.Message{MessageID: 2}, &ldap.ModifyRequest{
		Object: "cn=bob,dc=test",
		Changes: []ldap.ModifyChange{
			{Operation: ldap.ModifyReplace, Modification: ldap.Attribute{Description: "mail", Values: []string{"bob2@example.org"}}},
		},
	})
	res2 := readResult(t, client2)
	if res2.ResultCode != ldap.ResultSuccess {
		t.Fatalf("expected success, got %v: %s", res2.ResultCode, res2.DiagnosticMessage)
	}

	rows, _ := s.Attributes(context.Background(), entry.ID)
	found := false
	for _, a := range rows {
		if a.Name == "mail" && a.Value == "bob2@example.org" {
			found = true
		}
		if a.Name == "mail" && a.Value == "bob@example.org" {
			t.Fatalf("expected old mail value to be replaced")
		}
	}
	if !found {
		t.Fatalf("expected replaced mail value present")
	}
}

func TestModifyMemberOfAddTranslatesToGroupEdge(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	group := s.seed(&base.ID, "group", "cn=admins", []string{"dc=test", "cn=admins"}, nil)
	user := s.seed(&base.ID, "user", "cn=bob", []string{"dc=test", "cn=bob"}, nil)
	s.users[user.ID] = &model.User{DirectoryID: user.ID}

	h := newTestHandler(t, s)
	conn, client := boundConn(t, s, base.ID)

	go h.Modify(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.ModifyRequest{
		Object: "cn=bob,dc=test",
		Changes: []ldap.ModifyChange{
			{Operation: ldap.ModifyAdd, Modification: ldap.Attribute{Description: "memberOf", Values: []string{"cn=admins,dc=test"}}},
		},
	})
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultSuccess {
		t.Fatalf("expected success, got %v: %s", res.ResultCode, res.DiagnosticMessage)
	}

	member, err := s.IsTransitiveMember(context.Background(), user.ID, group.ID, 8)
	if err != nil || !member {
		t.Fatalf("expected user to be a member of the group, member=%v err=%v", member, err)
	}
}

func TestModifyAddRejectsExistingAttributeValue(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	s.seed(&base.ID, "user", "cn=bob", []string{"dc=test", "cn=bob"}, []model.Attribute{{Name: "mail", Value: "bob@example.org"}})

	h := newTestHandler(t, s)
	conn, client := boundConn(t, s, base.ID)

	go h.Modify(context.Background(), conn, &ldap.Message{MessageID: 1}, &ldap.ModifyRequest{
		Object: "cn=bob,dc=test",
		Changes: []ldap.ModifyChange{
			{Operation: ldap.ModifyAdd, Modification: ldap.Attribute{Description: "mail", Values: []string{"bob@example.org"}}},
		},
	})
	res := readResult(t, client)
	if res.ResultCode != ldap.ResultAttributeOrValueExists {
		t.Fatalf("expected attributeOrValueExists, got %v: %s", res.ResultCode, res.DiagnosticMessage)
	}
}

func TestAddGroupToGroupRejectsCycle(t *testing.T) {
	s := newFakeStore()
	base := seedBase(s)
	a := s.seed(&base.ID, "group", "cn=a", []string{"dc=test", "cn=a"}, nil)
	b := s.seed(&base.ID, "group", "cn=b", []string{"dc=test", "cn=b"}, nil)
	s.groups[a.ID] = true
	s.groups[b.ID] = true

	// a nested inside b.
	if err := s.AddGroupToGroup(context.Background(), a.ID, b.ID); err != nil {
		t.Fatalf("seeding a->b edge: %v", err)
	}

	// Nesting b inside a would close the cycle a -> b -> a.
	err := s.AddGroupToGroup(context.Background(), b.ID, a.ID)
	if err != store.ErrCycle {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}
