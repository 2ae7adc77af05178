package operator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operators.yaml")
	content := `operators:
  - username: ada
    displayName: Ada Lovelace
    passwordHash: "$2a$10$abcdefghijklmnopqrstuv"
  - username: grace
    passwordHash: "$2a$10$zyxwvutsrqponmlkjihgfe"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	ops, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "ada", ops[0].Username)
	assert.Equal(t, "Ada Lovelace", ops[0].DisplayName)
	assert.Equal(t, "grace", ops[1].Username)
}

func TestLoadFileRejectsMissingHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operators.yaml")
	require.NoError(t, os.WriteFile(path, []byte("operators:\n  - username: ada\n"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestMemoryStoreLaterEntryWins(t *testing.T) {
	store := NewMemoryStore([]Operator{
		{Username: "ada", PasswordHash: "old"},
		{Username: "grace", PasswordHash: "g"},
		{Username: "ada", PasswordHash: "new"},
	})

	assert.Len(t, store.List(), 2)
	op, ok := store.FindByUsername("ada")
	require.True(t, ok)
	assert.Equal(t, "new", op.PasswordHash)

	_, ok = store.FindByUsername("nobody")
	assert.False(t, ok)
}
