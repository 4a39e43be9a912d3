package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-export/internal/types"
)

func selectionProject() types.Project {
	return types.Project{
		Name: "demo",
		Groups: []types.DependencyGroup{
			{Name: types.MainGroup},
			{Name: "dev"},
			{Name: "docs", Optional: true},
		},
		Extras: map[string][]string{
			"db":          {"psycopg"},
			"Socks_Proxy": {"pysocks"},
		},
	}
}

func TestSelectionResolverResolve(t *testing.T) {
	tests := []struct {
		name   string
		policy types.SelectionPolicy
		want   types.Selection
	}{
		{
			name:   "default is main only",
			policy: types.SelectionPolicy{},
			want:   types.Selection{Groups: []string{"main"}},
		},
		{
			name:   "with adds groups",
			policy: types.SelectionPolicy{With: []string{"docs", "dev"}},
			want:   types.Selection{Groups: []string{"main", "dev", "docs"}},
		},
		{
			name:   "without removes main",
			policy: types.SelectionPolicy{With: []string{"dev"}, Without: []string{"main"}},
			want:   types.Selection{Groups: []string{"dev"}},
		},
		{
			name:   "only replaces the default",
			policy: types.SelectionPolicy{Only: []string{"docs"}},
			want:   types.Selection{Groups: []string{"docs"}},
		},
		{
			name:   "all groups",
			policy: types.SelectionPolicy{AllGroups: true},
			want:   types.Selection{Groups: []string{"main", "dev", "docs"}},
		},
		{
			name:   "deprecated dev",
			policy: types.SelectionPolicy{Dev: true},
			want:   types.Selection{Groups: []string{"main", "dev"}},
		},
		{
			name:   "deprecated default",
			policy: types.SelectionPolicy{DefaultOnly: true, With: []string{"dev"}},
			want:   types.Selection{Groups: []string{"main"}},
		},
		{
			name:   "extras are normalized",
			policy: types.SelectionPolicy{Extras: []string{"socks_proxy db"}},
			want:   types.Selection{Groups: []string{"main"}, Extras: []string{"db", "socks-proxy"}},
		},
		{
			name:   "all extras",
			policy: types.SelectionPolicy{AllExtras: true},
			want:   types.Selection{Groups: []string{"main"}, Extras: []string{"db", "socks-proxy"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSelectionResolver().Resolve(t.Context(), selectionProject(), tt.policy)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected selection (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectionResolverErrors(t *testing.T) {
	tests := []struct {
		name    string
		policy  types.SelectionPolicy
		message string
	}{
		{
			name:    "unknown only group",
			policy:  types.SelectionPolicy{Only: []string{"doesnotexist"}},
			message: "group(s) not found: doesnotexist (via --only)",
		},
		{
			name:    "unknown with and without",
			policy:  types.SelectionPolicy{With: []string{"lint"}, Without: []string{"test", "bench"}},
			message: "group(s) not found: lint (via --with), bench, test (via --without)",
		},
		{
			name:    "all groups with only",
			policy:  types.SelectionPolicy{AllGroups: true, Only: []string{"dev"}},
			message: "cannot combine --with, --without or --only with --all-groups",
		},
		{
			name:    "extras with all extras",
			policy:  types.SelectionPolicy{AllExtras: true, Extras: []string{"db"}},
			message: "cannot combine --extras with --all-extras",
		},
		{
			name:    "unknown extra",
			policy:  types.SelectionPolicy{Extras: []string{"yaml", "db", "toml"}},
			message: "extra [toml, yaml] is not specified",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSelectionResolver().Resolve(t.Context(), selectionProject(), tt.policy)
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestOrderGroups(t *testing.T) {
	got := orderGroups([]string{"test", "main", "dev", "test"})
	if diff := cmp.Diff([]string{"main", "dev", "test"}, got); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}
