package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenyList_Check(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDenyList([]string{
		filepath.Join(dir, "secret") + "/**",
		filepath.Join(dir, "private"),
		"**/*.credentials.xlsx",
		"",
	})
	require.NoError(t, err)

	tests := []struct {
		path    string
		blocked bool
	}{
		{filepath.Join(dir, "secret", "pay.xlsx"), true},
		{filepath.Join(dir, "secret", "deep", "er", "pay.xlsx"), true},
		{filepath.Join(dir, "private", "a.xlsx"), true},
		{filepath.Join(dir, "privateer", "a.xlsx"), false},
		{filepath.Join(dir, "bank.credentials.xlsx"), true},
		{filepath.Join(dir, "report.xlsx"), false},
		{filepath.Join(dir, "public", "..", "secret", "x.xlsx"), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.blocked, d.IsBlocked(tt.path), tt.path)
	}

	err = d.Check(filepath.Join(dir, "private", "a.xlsx"))
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, filepath.Join(dir, "private"), denied.Pattern)
	assert.Contains(t, err.Error(), "access denied")
}

func TestDenyList_Symlink(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret")
	require.NoError(t, os.Mkdir(secret, 0o755))
	secret, err := filepath.EvalSymlinks(secret)
	require.NoError(t, err)
	link := filepath.Join(dir, "innocent")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	d, err := NewDenyList([]string{secret + "/**"})
	require.NoError(t, err)
	assert.False(t, d.IsBlocked(filepath.Join(dir, "other", "new.xlsx")))
	assert.True(t, d.IsBlocked(filepath.Join(link, "new.xlsx")))
	assert.True(t, d.IsBlocked(filepath.Join(link, "newdir", "deeper", "new.xlsx")))
	assert.False(t, d.IsBlocked(filepath.Join(dir, "other", "newdir", "new.xlsx")))

	err = d.Check(filepath.Join(link, "newdir", "new.xlsx"))
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, filepath.Join(link, "newdir", "new.xlsx"), denied.Path)
}

func TestDenyList_HomeAndUpdate(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	d, err := NewDenyList(DefaultDeniedPaths)
	require.NoError(t, err)
	assert.True(t, d.IsBlocked(filepath.Join(home, ".ssh", "keys.xlsx")))
	assert.True(t, d.IsBlocked("~/.aws/costs.xlsx"))
	assert.False(t, d.IsBlocked(filepath.Join(home, "Documents", "budget.xlsx")))

	require.NoError(t, d.Update(nil))
	assert.False(t, d.IsBlocked(filepath.Join(home, ".ssh", "keys.xlsx")))
	assert.Empty(t, d.Patterns())

	_, err = NewDenyList([]string{"/tmp/[unclosed"})
	assert.ErrorContains(t, err, "invalid denied path pattern")
}
