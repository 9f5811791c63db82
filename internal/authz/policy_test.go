package authz

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/feedback-service/internal/domain"
)

var (
	admin    = &domain.Identity{Subject: "admin@shop.com", Role: domain.RoleAdmin, ID: 1}
	employee = &domain.Identity{Subject: "clerk@shop.com", Role: domain.RoleEmployee, ID: 2}
)

func mustRule(t *testing.T, method, pattern string, req Requirement) Rule {
	t.Helper()
	rule, err := NewRule(method, pattern, req)
	require.NoError(t, err)
	return rule
}

func TestDefaultPolicyDecisions(t *testing.T) {
	policy, err := DefaultPolicy()
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		path     string
		identity *domain.Identity
		allowed  bool
		reason   DenyReason
	}{
		{"employee signup is public", http.MethodPost, "/api/employees/create", nil, true, DenyNone},
		{"login is public", http.MethodPost, "/api/employees/login", nil, true, DenyNone},
		{"forgot password is public", http.MethodPost, "/api/employees/forgot-password", nil, true, DenyNone},
		{"docs are public", http.MethodGet, "/v3/api-docs/swagger-config", nil, true, DenyNone},
		{"device creation by employee", http.MethodPost, "/api/devices/create", employee, false, DenyWrongRole},
		{"device creation by admin", http.MethodPost, "/api/devices/create", admin, true, DenyNone},
		{"device creation anonymous", http.MethodPost, "/api/devices/create", nil, false, DenyNoIdentity},
		{"questions by employee", http.MethodGet, "/api/questions/all", employee, true, DenyNone},
		{"questions by admin", http.MethodGet, "/api/questions/all", admin, true, DenyNone},
		{"questions anonymous", http.MethodGet, "/api/questions/all", nil, false, DenyNoIdentity},
		{"feedback count by admin", http.MethodGet, "/api/feedback/allfeedbackscount", admin, true, DenyNone},
		{"feedback count by employee", http.MethodGet, "/api/feedback/allfeedbackscount", employee, false, DenyWrongRole},
		{"feedback submission by employee", http.MethodPost, "/api/feedback/create", employee, true, DenyNone},
		{"feedback submission by admin", http.MethodPost, "/api/feedback/create", admin, false, DenyWrongRole},
		{"feedback deletion by employee", http.MethodDelete, "/api/feedback/9", employee, false, DenyWrongRole},
		{"role change by employee", http.MethodPut, "/api/employees/2/role", employee, false, DenyWrongRole},
		{"metrics by admin", http.MethodGet, "/api/admin/metrics", admin, true, DenyNone},
		{"unlisted route falls back to public", http.MethodGet, "/api/unlisted/thing", nil, true, DenyNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := policy.Authorize(tt.method, tt.path, tt.identity)
			assert.Equal(t, tt.allowed, decision.Allowed)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestUnmatchedRequestUsesFallback(t *testing.T) {
	policy, err := DefaultPolicy()
	require.NoError(t, err)

	decision := policy.Authorize(http.MethodPatch, "/api/unlisted", nil)
	assert.True(t, decision.Allowed)
	assert.True(t, decision.Default)

	strict := NewPolicy(RequireAuthenticated(), policy.Rules()...)
	decision = strict.Authorize(http.MethodPatch, "/api/unlisted", nil)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenyNoIdentity, decision.Reason)
	assert.True(t, decision.Default)
}

func TestFirstMatchWins(t *testing.T) {
	broad := mustRule(t, http.MethodGet, "/api/feedback/**", RequireAuthenticated())
	narrow := mustRule(t, http.MethodGet, "/api/feedback/allfeedbackscount", RequireRole(domain.RoleAdmin))

	narrowFirst := NewPolicy(RequirePublic(), narrow, broad)
	assert.False(t, narrowFirst.Authorize(http.MethodGet, "/api/feedback/allfeedbackscount", employee).Allowed)

	// Same rules, broad first: the narrow rule never gets a say.
	broadFirst := NewPolicy(RequirePublic(), broad, narrow)
	decision := broadFirst.Authorize(http.MethodGet, "/api/feedback/allfeedbackscount", employee)
	assert.True(t, decision.Allowed)
	assert.Equal(t, broad, decision.Rule)
}

func TestDefaultPolicyIgnoresPathCase(t *testing.T) {
	policy, err := DefaultPolicy()
	require.NoError(t, err)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/API/employees/1/role"},
		{http.MethodPut, "/api/Employees/1/Role"},
		{http.MethodGet, "/API/admin/metrics"},
		{http.MethodGet, "/Api/Admin/Audit"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rule, matched := policy.Resolve(tc.method, tc.path)
			require.True(t, matched)
			assert.Equal(t, RoleRequired, rule.Requirement.Kind)

			anonymous := policy.Authorize(tc.method, tc.path, nil)
			assert.False(t, anonymous.Allowed)
			assert.Equal(t, DenyNoIdentity, anonymous.Reason)
			assert.Equal(t, DenyWrongRole, policy.Authorize(tc.method, tc.path, employee).Reason)
			assert.True(t, policy.Authorize(tc.method, tc.path, admin).Allowed)
		})
	}
}

func TestHeadFollowsGetRules(t *testing.T) {
	policy, err := DefaultPolicy()
	require.NoError(t, err)

	decision := policy.Authorize(http.MethodHead, "/api/employees/me", nil)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenyNoIdentity, decision.Reason)
	assert.True(t, policy.Authorize(http.MethodHead, "/api/employees/me", employee).Allowed)

	decision = policy.Authorize(http.MethodHead, "/api/feedback/report/2024", employee)
	assert.Equal(t, DenyWrongRole, decision.Reason)

	getRule := mustRule(t, http.MethodGet, "/api/reports/**", RequireAuthenticated())
	headRule := mustRule(t, http.MethodHead, "/api/reports/daily", RequirePublic())
	assert.Len(t, NewPolicy(RequirePublic(), getRule, headRule).Shadowed(), 1)
	assert.Empty(t, NewPolicy(RequirePublic(), headRule, getRule).Shadowed())
}

func TestShadowedDetectsNarrowRuleAfterCatchAll(t *testing.T) {
	broad := mustRule(t, http.MethodGet, "/api/feedback/**", RequireAuthenticated())
	narrow := mustRule(t, http.MethodGet, "/api/feedback/allfeedbackscount", RequireRole(domain.RoleAdmin))

	assert.Empty(t, NewPolicy(RequirePublic(), narrow, broad).Shadowed())

	shadows := NewPolicy(RequirePublic(), broad, narrow).Shadowed()
	require.Len(t, shadows, 1)
	assert.Equal(t, 1, shadows[0].Index)
	assert.Equal(t, 0, shadows[0].ByIndex)
	assert.Contains(t, shadows[0].String(), "unreachable")
}

func TestShadowedRespectsMethods(t *testing.T) {
	anyMethod := mustRule(t, AnyMethod, "/api/admin/**", RequireRole(domain.RoleAdmin))
	getOnly := mustRule(t, http.MethodGet, "/api/admin/metrics", RequireAuthenticated())
	postOnly := mustRule(t, http.MethodPost, "/api/admin/**", RequireAuthenticated())

	assert.Len(t, NewPolicy(RequirePublic(), anyMethod, getOnly).Shadowed(), 1)
	assert.Empty(t, NewPolicy(RequirePublic(), postOnly, getOnly).Shadowed())
}

func TestDefaultPolicyHasNoUnreachableRules(t *testing.T) {
	policy, err := DefaultPolicy()
	require.NoError(t, err)
	for _, s := range policy.Shadowed() {
		t.Errorf("%s", s)
	}
}

func TestAppendingNarrowRuleToDefaultTableIsUnreachable(t *testing.T) {
	policy, err := DefaultPolicy()
	require.NoError(t, err)

	late := mustRule(t, http.MethodGet, "/api/questions/secret", RequireRole(domain.RoleAdmin))
	extended := NewPolicy(policy.Fallback(), append(policy.Rules(), late)...)

	shadows := extended.Shadowed()
	require.Len(t, shadows, 1)
	assert.Equal(t, late, shadows[0].Rule)
	assert.True(t, extended.Authorize(http.MethodGet, "/api/questions/secret", employee).Allowed)
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		in      string
		want    Requirement
		wantErr bool
	}{
		{"public", RequirePublic(), false},
		{" Authenticated ", RequireAuthenticated(), false},
		{"role:admin", RequireRole(domain.RoleAdmin), false},
		{"role:EMPLOYEE", RequireRole(domain.RoleEmployee), false},
		{"role:owner", Requirement{}, true},
		{"private", Requirement{}, true},
	}
	for _, tt := range tests {
		got, err := ParseRequirement(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, mustReparse(t, got.String()))
	}
}

func mustReparse(t *testing.T, s string) Requirement {
	t.Helper()
	req, err := ParseRequirement(s)
	require.NoError(t, err)
	return req
}
