package app

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-export/internal/adapters"
)

func TestSnapshotWritesGraph(t *testing.T) {
	service, _ := newTestService(t)

	result, err := service.Snapshot(t.Context(), SnapshotRequest{
		ProjectDir: fixtureDir(t, "demo-app"),
		OutputPath: "snapshot.yaml",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(service.WorkDir, "snapshot.yaml"), result.Path)
	assert.Equal(t, "demo-app", result.ProjectName)
	assert.Equal(t, 16, result.PackageCount)

	graph, err := adapters.NewGraphFileAdapter().LoadGraph(result.Path)
	require.NoError(t, err)
	assert.Equal(t, fixtureDir(t, "demo-app"), graph.Project.Dir)
	assert.Len(t, graph.Packages, 16)
}

func TestSnapshotRequiresOutput(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Snapshot(t.Context(), SnapshotRequest{ProjectDir: fixtureDir(t, "demo-app")})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
