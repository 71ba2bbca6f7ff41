package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/selector"
)

func TestStore_RunStateRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	none, err := s.LoadRunState()
	require.NoError(t, err)
	require.Nil(t, none)

	rs := &model.RunState{RunID: "r1", Status: model.StatusRunning}
	require.NoError(t, s.SaveRunState(rs))

	loaded, err := s.LoadRunState()
	require.NoError(t, err)
	require.Equal(t, "r1", loaded.RunID)
	require.Equal(t, model.StatusRunning, loaded.Status)
}

func TestStore_PreferencesRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	none, err := s.GetPreference("p1")
	require.NoError(t, err)
	require.Nil(t, none)

	ov := model.UserOverride{ProductID: "p1", Directive: model.OverrideAlwaysPrune, UpdatedAt: time.Now()}
	require.NoError(t, s.SavePreference(ov))

	got, err := s.GetPreference("p1")
	require.NoError(t, err)
	require.Equal(t, model.OverrideAlwaysPrune, got.Directive)

	require.NoError(t, s.DeletePreference("p1"))
	got, err = s.GetPreference("p1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStore_APIKeyNeverTouchesDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	s.SetAPIKey("sk-test")
	require.Equal(t, "sk-test", s.APIKey())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.True(t, e.IsDir(), "unexpected file %s after SetAPIKey", e.Name())
	}

	s.ClearAPIKey()
	require.Equal(t, "", s.APIKey())
}

func TestStore_SelectorDefRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	def := selector.SelectorDef{
		PageID:  "order-history",
		Version: 1,
		Selectors: map[string]selector.SelectorEntry{
			"reorderButton": {Primary: "[data-testid='reorder']"},
		},
	}
	require.NoError(t, s.SaveSelectorDef(def))

	defs, err := s.LoadSelectorDefs()
	require.NoError(t, err)
	require.Len(t, defs, 1)
	require.Equal(t, "order-history", defs[0].PageID)
}
