// Package testutil provides shared helpers for the integration tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root, two levels
// above the test package directory.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// FixtureProject returns the absolute path of a project under fixtures/.
func FixtureProject(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(RepoRoot(t), "fixtures", name)
	require.DirExists(t, dir)
	return dir
}
