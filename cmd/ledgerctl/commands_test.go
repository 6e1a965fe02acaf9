package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/pkg/jwt"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "ctl-secret")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToken_SignsParsableToken(t *testing.T) {
	out, err := run(t, "token", "--user", "u-9", "--name", "Integración ERP", "--role", "storekeeper")
	require.NoError(t, err)

	claims, err := jwt.Parse("ctl-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-9", claims.UserID)
	assert.Equal(t, "Integración ERP", claims.Name)
	assert.Equal(t, jwt.RoleStorekeeper, claims.Role)
}

func TestToken_RejectsUnknownRole(t *testing.T) {
	_, err := run(t, "token", "--user", "u-9", "--name", "x", "--role", "root")
	assert.Error(t, err)
}

func TestReconcile_EmptyLedgerHasNoDrift(t *testing.T) {
	out, err := run(t, "reconcile")
	require.NoError(t, err)

	var reports []*ledger.ReconcileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	assert.Empty(t, reports)
}

func TestMigrate_OnlyForPostgres(t *testing.T) {
	_, err := run(t, "migrate")
	assert.Error(t, err)
}

func TestBalance_UnknownPart(t *testing.T) {
	_, err := run(t, "balance", "nope")
	assert.Error(t, err)
}
