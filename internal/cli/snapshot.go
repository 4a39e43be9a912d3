package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"poetry-export/internal/app"
)

type snapshotOptions struct {
	Project string
	Output  string
}

func newSnapshotCommand() *cobra.Command {
	opts := snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write the project lock graph as a YAML snapshot for --graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Project, "project", "C", "", "Project directory containing pyproject.toml and poetry.lock")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "lock-graph.yaml", "Snapshot file to write")
	return cmd
}

func runSnapshot(ctx context.Context, cmd *cobra.Command, opts snapshotOptions) error {
	service := newAppService(cmd)
	result, err := service.Snapshot(ctx, app.SnapshotRequest{
		ProjectDir: resolveString(cmd, opts.Project, "project", "project"),
		OutputPath: opts.Output,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "snapshot of %s written to %s (%d packages)\n", result.ProjectName, result.Path, result.PackageCount)
	return nil
}
