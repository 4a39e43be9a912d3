package app

import (
	"os"

	"poetry-export/internal/adapters"
	"poetry-export/internal/ports"
)

type Service struct {
	ProjectLoader  ports.LockGraphPort
	SnapshotLoader ports.LockGraphPort
	SnapshotWriter ports.LockGraphWriterPort
	Output         ports.OutputPort
	Credentials    ports.CredentialPort
	// WorkDir anchors relative project, graph and output paths.
	WorkDir string
}

func NewService() Service {
	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}
	graphs := adapters.NewGraphFileAdapter()
	return Service{
		ProjectLoader:  adapters.NewPoetryProjectAdapter(),
		SnapshotLoader: graphs,
		SnapshotWriter: graphs,
		Output:         adapters.NewOutputFileAdapter(workDir, os.Stdout),
		Credentials:    adapters.NewCredentialAdapter(nil),
		WorkDir:        workDir,
	}
}
