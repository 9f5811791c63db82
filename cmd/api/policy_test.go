package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AUTHZ_RULES_FILE", "")
	t.Setenv("AUTHZ_DEFAULT", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPolicyCheckEmbeddedTable(t *testing.T) {
	out, err := runCLI(t, "policy", "check")
	require.NoError(t, err, out)
	assert.Contains(t, out, "default public")
	assert.Contains(t, out, "ok")
}

func TestPolicyCheckReportsShadowedRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - methods: [GET]
    patterns: [/api/questions/**]
    require: authenticated
  - methods: [GET]
    patterns: [/api/questions/secret]
    require: role:admin
`), 0o600))

	out, err := runCLI(t, "policy", "check", "--file", path)
	require.Error(t, err)
	assert.Contains(t, out, "unreachable: ")
	assert.Contains(t, out, "/api/questions/secret")
}

func TestPolicyExplain(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "employee denied report",
			args: []string{"policy", "explain", "get", "/api/feedback/report/2024", "--role", "employee"},
			want: []string{"GET /api/feedback/report/** -> role:admin", "deny (wrong role, 403)"},
		},
		{
			name: "anonymous denied read",
			args: []string{"policy", "explain", "GET", "/api/questions/all"},
			want: []string{"deny (no identity, 401)"},
		},
		{
			name: "employee creates feedback",
			args: []string{"policy", "explain", "POST", "/api/feedback/create", "--role", "employee"},
			want: []string{"decision: allow"},
		},
		{
			name: "unlisted falls back to default",
			args: []string{"policy", "explain", "GET", "/nothing/here"},
			want: []string{"default:", "decision: allow"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := runCLI(t, tc.args...)
			require.NoError(t, err, out)
			for _, want := range tc.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestPolicyExplainRejectsUnknownRole(t *testing.T) {
	_, err := runCLI(t, "policy", "explain", "GET", "/", "--role", "owner")
	assert.Error(t, err)
}
