package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"poetry-export/internal/app"
)

type inspectOptions struct {
	Project string
	Graph   string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show groups, extras, sources and locked packages of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Project, "project", "C", "", "Project directory containing pyproject.toml and poetry.lock")
	cmd.Flags().StringVar(&opts.Graph, "graph", "", "YAML graph snapshot to inspect instead of a project")
	return cmd
}

func runInspect(cmd *cobra.Command, opts inspectOptions) error {
	service := newAppService(cmd)
	result, err := service.Inspect(app.InspectRequest{
		ProjectDir: resolveString(cmd, opts.Project, "project", "project"),
		GraphPath:  resolveString(cmd, opts.Graph, "graph", "graph"),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "project: %s %s\n", result.ProjectName, result.ProjectVersion)
	fmt.Fprintf(out, "python: %s\n", result.PythonConstraint)
	if result.LockVersion != "" {
		fmt.Fprintf(out, "lock version: %s\n", result.LockVersion)
	}
	fmt.Fprintln(out, "groups:")
	for _, group := range result.Groups {
		optional := ""
		if group.Optional {
			optional = " (optional)"
		}
		fmt.Fprintf(out, "- %s%s: %d dependencies\n", group.Name, optional, group.Dependencies)
	}
	if len(result.Extras) > 0 {
		fmt.Fprintln(out, "extras:")
		for _, extra := range result.Extras {
			fmt.Fprintf(out, "- %s: %s\n", extra.Name, strings.Join(extra.Packages, ", "))
		}
	}
	fmt.Fprintln(out, "sources:")
	for _, repo := range result.Repositories {
		fmt.Fprintf(out, "- %s (%s): %s\n", repo.Name, repo.Priority, repo.URL)
	}
	if result.PyPIActive {
		fmt.Fprintln(out, "- pypi (default): https://pypi.org/simple")
	}
	fmt.Fprintf(out, "locked packages: %d\n", result.PackageCount)
	return nil
}
