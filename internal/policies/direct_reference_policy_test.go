package policies

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-export/internal/types"
)

func TestParseDirectReferenceMode(t *testing.T) {
	for raw, want := range map[string]types.DirectReferenceMode{
		"":       types.DirectReferenceOmit,
		"omit":   types.DirectReferenceOmit,
		" FAIL ": types.DirectReferenceFail,
	} {
		got, err := ParseDirectReferenceMode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseDirectReferenceMode("keep")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestDirectReferencePolicyAdmit(t *testing.T) {
	tests := []struct {
		name string
		pkg  types.Package
		kind string
	}{
		{"registry", types.Package{Name: "six", Version: "1.16.0"}, ""},
		{"legacy index", types.Package{Name: "six", Source: types.PackageSource{Type: types.SourceTypeLegacy, URL: "https://pkgs.example.com/simple"}}, ""},
		{"git", types.Package{Name: "lib", Source: types.PackageSource{Type: types.SourceTypeGit}}, "VCS reference"},
		{"directory", types.Package{Name: "lib", Source: types.PackageSource{Type: types.SourceTypeDirectory}}, "local path reference"},
		{"file", types.Package{Name: "lib", Source: types.PackageSource{Type: types.SourceTypeFile}}, "local path reference"},
		{"url", types.Package{Name: "lib", Source: types.PackageSource{Type: types.SourceTypeURL}}, "URL reference"},
		{"develop", types.Package{Name: "lib", Develop: true}, "develop (editable) package"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := types.ResolvedPackage{Package: tt.pkg}

			keep, warning, err := NewDirectReferencePolicy("").Admit(resolved)
			require.NoError(t, err)
			if tt.kind == "" {
				assert.True(t, keep)
				assert.Empty(t, warning)
			} else {
				assert.False(t, keep)
				assert.Equal(t, tt.pkg.Name+" is locked as a "+tt.kind+", which is incompatible with the constraints.txt format; it was omitted", warning)
			}

			keep, _, err = NewDirectReferencePolicy(types.DirectReferenceFail).Admit(resolved)
			if tt.kind == "" {
				require.NoError(t, err)
				assert.True(t, keep)
				return
			}
			require.Error(t, err)
			assert.False(t, keep)
			assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
			assert.Contains(t, err.Error(), "unrepresentable dependency: "+tt.pkg.Name)
		})
	}
}
