package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual_queue/internal/auth"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"vip", "normal"}, splitList(" vip, ,normal "))
	assert.Nil(t, splitList(""))
}

func setupEnv(t *testing.T) {
	t.Setenv("ENV_CHEK", "1")
	t.Setenv("VQ_CONFIG", "")
	t.Setenv("VQ_STORAGE_DRIVER", "memory")
	t.Setenv("VQ_AUTH_JWT_SECRET", "cli-secret")
}

func TestTokenCommand(t *testing.T) {
	setupEnv(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--staff", "anna", "--tenant", "clinic"})
	require.NoError(t, root.Execute())

	claims, err := auth.ParseToken([]byte("cli-secret"), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "clinic", claims.TenantID)
	assert.Equal(t, auth.RoleStaff, claims.Role)
	assert.Equal(t, "anna", claims.Subject)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	setupEnv(t)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--staff", "anna", "--tenant", "clinic", "--role", "root"})
	assert.Error(t, root.Execute())
}

func TestMigrateNeedsPostgres(t *testing.T) {
	setupEnv(t)

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory")
}
