package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePipName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "Requests", expected: "requests"},
		{input: "typing_extensions", expected: "typing-extensions"},
		{input: "zope.interface", expected: "zope-interface"},
		{input: "Foo__Bar-.baz", expected: "foo-bar-baz"},
		{input: "  PySocks ", expected: "pysocks"},
		{input: "", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePipName(tt.input))
		})
	}
}

func TestNormalizeNames(t *testing.T) {
	got := NormalizeNames([]string{"Socks_Proxy", "db toml", "", "DB"})
	assert.Equal(t, []string{"socks-proxy", "db", "toml"}, got)
	assert.Nil(t, NormalizeNames(nil))
}

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []string{"dev", "main"}, UniqueSorted([]string{"main", "dev", "main"}))
	assert.Nil(t, UniqueSorted(nil))
}

func TestQuoteList(t *testing.T) {
	assert.Equal(t, "[toml, yaml]", QuoteList([]string{"toml", "yaml"}))
	assert.Equal(t, "[]", QuoteList(nil))
}
