package policy_test

import (
	"net"
	"testing"

	"github.com/MultifactorLab/MultiDirectory/internal/policy"
)

func TestEvaluatePicksFirstMatchingByPriority(t *testing.T) {
	rules := []policy.Rule{
		{CIDR: "10.0.0.0/8", Priority: 1},
		{CIDR: "0.0.0.0/0", Priority: 2},
	}
	r, ok := policy.Evaluate(rules, net.ParseIP("10.1.2.3"))
	if !ok || r.Priority != 1 {
		t.Fatalf("expected priority-1 rule match, got %+v ok=%v", r, ok)
	}

	r, ok = policy.Evaluate(rules, net.ParseIP("8.8.8.8"))
	if !ok || r.Priority != 2 {
		t.Fatalf("expected priority-2 fallback match, got %+v ok=%v", r, ok)
	}
}

func TestEvaluateNoMatch(t *testing.T) {
	rules := []policy.Rule{{CIDR: "10.0.0.0/8", Priority: 1}}
	_, ok := policy.Evaluate(rules, net.ParseIP("8.8.8.8"))
	if ok {
		t.Fatalf("expected no match")
	}
}

func TestGroupAllowed(t *testing.T) {
	r := policy.Rule{Groups: []string{"cn=admins,dc=example,dc=com"}}
	if policy.GroupAllowed(r, []string{"cn=users,dc=example,dc=com"}) {
		t.Fatalf("expected group restriction to reject non-member")
	}
	if !policy.GroupAllowed(r, []string{"cn=admins,dc=example,dc=com"}) {
		t.Fatalf("expected group restriction to accept member")
	}
	if !policy.GroupAllowed(policy.Rule{}, nil) {
		t.Fatalf("expected empty Groups to allow any identity")
	}
}
