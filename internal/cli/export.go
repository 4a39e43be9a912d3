package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"poetry-export/internal/app"
	"poetry-export/internal/policies"
	"poetry-export/internal/types"
)

type exportOptions struct {
	Format           string
	Output           string
	Project          string
	Graph            string
	With             []string
	Without          []string
	Only             []string
	Default          bool
	Dev              bool
	Extras           []string
	AllExtras        bool
	AllGroups        bool
	WithoutHashes    bool
	WithoutURLs      bool
	WithoutMarkers   bool
	WithCredentials  bool
	DirectReferences string
}

func newExportCommand() *cobra.Command {
	opts := exportOptions{}
	formats := make([]string, 0, len(types.ExportFormats))
	for _, format := range types.ExportFormats {
		formats = append(formats, string(format))
	}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the lock file to an alternative format",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(types.FormatRequirementsTxt), fmt.Sprintf("Format to export to (%s)", strings.Join(formats, ", ")))
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "File to write to; standard output when empty")
	cmd.Flags().StringVarP(&opts.Project, "project", "C", "", "Project directory containing pyproject.toml and poetry.lock")
	cmd.Flags().StringVar(&opts.Graph, "graph", "", "YAML graph snapshot to export instead of a project")
	cmd.Flags().StringSliceVar(&opts.With, "with", nil, "Optional dependency groups to include")
	cmd.Flags().StringSliceVar(&opts.Without, "without", nil, "Dependency groups to exclude")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "The only dependency groups to include")
	cmd.Flags().BoolVar(&opts.Default, "default", false, "Only export the main dependencies (deprecated, use --only main)")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Include development dependencies (deprecated, use --with dev)")
	cmd.Flags().StringSliceVarP(&opts.Extras, "extras", "E", nil, "Extra sets of dependencies to include")
	cmd.Flags().BoolVar(&opts.AllExtras, "all-extras", false, "Include all sets of extra dependencies")
	cmd.Flags().BoolVar(&opts.AllGroups, "all-groups", false, "Include all dependency groups")
	cmd.Flags().BoolVar(&opts.WithoutHashes, "without-hashes", false, "Exclude package hashes")
	cmd.Flags().BoolVar(&opts.WithoutURLs, "without-urls", false, "Exclude source repository urls")
	cmd.Flags().BoolVar(&opts.WithoutMarkers, "without-markers", false, "Exclude environment markers")
	cmd.Flags().BoolVar(&opts.WithCredentials, "with-credentials", false, "Include credentials for extra indices")
	cmd.Flags().StringVar(&opts.DirectReferences, "direct-references", string(types.DirectReferenceOmit), "How constraints.txt handles path, URL and VCS packages (omit, fail)")

	_ = viper.BindPFlag("format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("graph", cmd.Flags().Lookup("graph"))
	_ = viper.BindPFlag("with", cmd.Flags().Lookup("with"))
	_ = viper.BindPFlag("without", cmd.Flags().Lookup("without"))
	_ = viper.BindPFlag("only", cmd.Flags().Lookup("only"))
	_ = viper.BindPFlag("default", cmd.Flags().Lookup("default"))
	_ = viper.BindPFlag("dev", cmd.Flags().Lookup("dev"))
	_ = viper.BindPFlag("extras", cmd.Flags().Lookup("extras"))
	_ = viper.BindPFlag("all_extras", cmd.Flags().Lookup("all-extras"))
	_ = viper.BindPFlag("all_groups", cmd.Flags().Lookup("all-groups"))
	_ = viper.BindPFlag("without_hashes", cmd.Flags().Lookup("without-hashes"))
	_ = viper.BindPFlag("without_urls", cmd.Flags().Lookup("without-urls"))
	_ = viper.BindPFlag("without_markers", cmd.Flags().Lookup("without-markers"))
	_ = viper.BindPFlag("with_credentials", cmd.Flags().Lookup("with-credentials"))
	_ = viper.BindPFlag("direct_references", cmd.Flags().Lookup("direct-references"))
	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, opts exportOptions) error {
	mode, err := policies.ParseDirectReferenceMode(resolveString(cmd, opts.DirectReferences, "direct_references", "direct-references"))
	if err != nil {
		return err
	}
	format := resolveString(cmd, opts.Format, "format", "format")
	if format == "" {
		format = string(types.FormatRequirementsTxt)
	}

	service := newAppService(cmd)
	result, err := service.Export(ctx, app.ExportRequest{
		ProjectDir: resolveString(cmd, opts.Project, "project", "project"),
		GraphPath:  resolveString(cmd, opts.Graph, "graph", "graph"),
		OutputPath: resolveString(cmd, opts.Output, "output", "output"),
		Policy: types.SelectionPolicy{
			With:        resolveStrings(cmd, opts.With, "with", "with"),
			Without:     resolveStrings(cmd, opts.Without, "without", "without"),
			Only:        resolveStrings(cmd, opts.Only, "only", "only"),
			Extras:      resolveStrings(cmd, opts.Extras, "extras", "extras"),
			AllExtras:   resolveBool(cmd, opts.AllExtras, "all_extras", "all-extras"),
			AllGroups:   resolveBool(cmd, opts.AllGroups, "all_groups", "all-groups"),
			Dev:         resolveBool(cmd, opts.Dev, "dev", "dev"),
			DefaultOnly: resolveBool(cmd, opts.Default, "default", "default"),
		},
		Options: types.ExportOptions{
			Format:           types.ExportFormat(format),
			WithHashes:       !resolveBool(cmd, opts.WithoutHashes, "without_hashes", "without-hashes"),
			WithURLs:         !resolveBool(cmd, opts.WithoutURLs, "without_urls", "without-urls"),
			WithMarkers:      !resolveBool(cmd, opts.WithoutMarkers, "without_markers", "without-markers"),
			WithCredentials:  resolveBool(cmd, opts.WithCredentials, "with_credentials", "with-credentials"),
			DirectReferences: mode,
		},
	})
	if err != nil {
		return err
	}
	if result.OutputPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d packages to %s (%s)\n", result.Packages, result.OutputPath, result.Format)
	}
	return nil
}
