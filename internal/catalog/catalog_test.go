package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/contentpilot/reddit-autopost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New([]models.CommunityProfile{
		{Name: "Python"},
		{Name: "Python"},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNew_RejectsEmptyNames(t *testing.T) {
	_, err := New([]models.CommunityProfile{{Name: ""}})
	assert.Error(t, err)
}

func TestCatalog_Lookup(t *testing.T) {
	cat, err := New([]models.CommunityProfile{
		{Name: "Python", Members: 1200000},
		{Name: "webdev", Members: 850000},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cat.Len())

	python, ok := cat.Get("Python")
	require.True(t, ok)
	assert.Equal(t, 1200000, python.Members)

	_, ok = cat.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, 0, cat.Position("Python"))
	assert.Equal(t, 1, cat.Position("webdev"))
	// Unknown names sort after everything.
	assert.Equal(t, 2, cat.Position("missing"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
communities:
  - name: golang
    members: 250000
    tags: [go, golang, programming]
    accepted_types: [tutorial, news]
    base_risk: LOW
    rules:
      - kind: title-length
        min_len: 10
        max_len: 300
      - kind: required-flair
        flair: show-and-tell
  - name: rust
    members: 300000
    tags: [rust, systems]
`), 0o644))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	golang, ok := cat.Get("golang")
	require.True(t, ok)
	assert.Equal(t, 250000, golang.Members)
	assert.Equal(t, models.RiskLow, golang.BaseRisk)
	assert.True(t, golang.AcceptsType(models.ContentTutorial))
	assert.False(t, golang.AcceptsType(models.ContentOpinion))
	assert.Equal(t, "show-and-tell", golang.RequiredFlair())
	require.Len(t, golang.Rules, 2)
	assert.Equal(t, models.RuleTitleLength, golang.Rules[0].Kind)
	assert.Equal(t, 10, golang.Rules[0].MinLen)

	// No accepted_types means everything is accepted.
	rust, ok := cat.Get("rust")
	require.True(t, ok)
	assert.True(t, rust.AcceptsType(models.ContentOpinion))
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("communities: []\n"), 0o644))
	_, err = LoadFile(empty)
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("communities: {not: a list}\n"), 0o644))
	_, err = LoadFile(invalid)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cat := Default()
	assert.GreaterOrEqual(t, cat.Len(), 5)

	for _, community := range cat.Communities() {
		assert.NotEmpty(t, community.Name)
		assert.Greater(t, community.Members, 0)
		assert.NotEmpty(t, community.Tags)
		assert.NotEmpty(t, community.BaseRisk)
	}

	// The strictest default community requires flair and account age.
	ml, ok := cat.Get("MachineLearning")
	require.True(t, ok)
	assert.Equal(t, "Discussion", ml.RequiredFlair())
}
