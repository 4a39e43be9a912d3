package app

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"poetry-export/internal/adapters"
)

const pythonMarker = `python_version >= "3.9" and python_version < "4.0"`

// newTestService wires the real adapters to a temporary working directory
// and captures standard output.
func newTestService(t *testing.T) (Service, *bytes.Buffer) {
	t.Helper()
	workDir := t.TempDir()
	var stdout bytes.Buffer
	graphs := adapters.NewGraphFileAdapter()
	return Service{
		ProjectLoader:  adapters.NewPoetryProjectAdapter(),
		SnapshotLoader: graphs,
		SnapshotWriter: graphs,
		Output:         adapters.NewOutputFileAdapter(workDir, &stdout),
		WorkDir:        workDir,
	}, &stdout
}

func fixtureDir(t *testing.T, name string) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "fixtures", name))
	require.NoError(t, err)
	return dir
}
