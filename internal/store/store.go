// Package store is the persisted-state layer of §6: runState, authored
// selector definitions, and the preference map, all as JSON files under a
// single base directory. The store is single-writer (the orchestrator) with
// multi-reader views for UIs, matching §5's shared-resource rule.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/selector"
)

const (
	runStateFile          = "runState.json"
	preferencesFile       = "preferences.json"
	householdSettingsFile = "householdSettings.json"
	selectorsDirName      = "selectors"
	filePerm              = 0o644
	dirPerm               = 0o755
)

// Store is a JSON-file-backed persisted state store rooted at a base
// directory. The anthropicApiKey is deliberately kept in-memory only (§6:
// "session only ... never persisted across process shutdown").
type Store struct {
	mu  sync.RWMutex
	dir string

	apiKeyMu sync.RWMutex
	apiKey   string
}

// New creates a Store rooted at dir, creating the directory tree if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, selectorsDirName), dirPerm); err != nil {
		return nil, errors.Wrap(err, "create store directory")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(parts ...string) string {
	return filepath.Join(append([]string{s.dir}, parts...)...)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Wrapf(err, "decode %s", path)
	}
	return true, nil
}

func writeJSON(path string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// LoadRunState returns the persisted RunState, or (nil, nil) when none has
// been saved yet.
func (s *Store) LoadRunState() (*model.RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rs model.RunState
	found, err := readJSON(s.path(runStateFile), &rs)
	if err != nil || !found {
		return nil, err
	}
	return &rs, nil
}

// SaveRunState persists rs, overwriting any prior snapshot. The orchestrator
// calls this before every event-loop yield so a crash mid-run recovers.
func (s *Store) SaveRunState(rs *model.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path(runStateFile), rs)
}

// GetPreference returns the UserOverride for a product identity, or
// (nil, nil) when none is set.
func (s *Store) GetPreference(productID string) (*model.UserOverride, error) {
	prefs, err := s.loadPreferences()
	if err != nil {
		return nil, err
	}
	if ov, ok := prefs[productID]; ok {
		cp := ov
		return &cp, nil
	}
	return nil, nil
}

// AllPreferences returns the full preference map, keyed by product identity.
func (s *Store) AllPreferences() (map[string]model.UserOverride, error) {
	return s.loadPreferences()
}

// SavePreference sets or replaces the override for a product identity. Per
// §3's ownership rule, this is only ever called from an explicit user action
// reported by the review UI, never from the heuristic engines themselves.
func (s *Store) SavePreference(ov model.UserOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.loadPreferencesLocked()
	if err != nil {
		return err
	}
	prefs[ov.ProductID] = ov
	return writeJSON(s.path(preferencesFile), prefs)
}

// DeletePreference clears any override for a product identity.
func (s *Store) DeletePreference(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.loadPreferencesLocked()
	if err != nil {
		return err
	}
	delete(prefs, productID)
	return writeJSON(s.path(preferencesFile), prefs)
}

func (s *Store) loadPreferences() (map[string]model.UserOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadPreferencesLocked()
}

func (s *Store) loadPreferencesLocked() (map[string]model.UserOverride, error) {
	prefs := map[string]model.UserOverride{}
	_, err := readJSON(s.path(preferencesFile), &prefs)
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// HouseholdSettings is the persisted household-level override layer for the
// §4.5 decision-tuning cascade (per-run override -> household -> global
// config default). Kept as a plain struct here, independent of
// internal/orchestrator's identical-shaped type, since orchestrator already
// imports this package.
type HouseholdSettings struct {
	ConservativeMode   *bool    `json:"conservativeMode,omitempty"`
	MinPruneConfidence *float64 `json:"minPruneConfidence,omitempty"`
	LLMReviewEnabled   *bool    `json:"llmReviewEnabled,omitempty"`
}

// LoadHouseholdSettings returns the persisted household settings, or a zero
// value (no overrides) when none have been saved yet.
func (s *Store) LoadHouseholdSettings() (HouseholdSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hs HouseholdSettings
	if _, err := readJSON(s.path(householdSettingsFile), &hs); err != nil {
		return HouseholdSettings{}, err
	}
	return hs, nil
}

// SaveHouseholdSettings persists hs, overwriting any prior snapshot.
func (s *Store) SaveHouseholdSettings(hs HouseholdSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path(householdSettingsFile), hs)
}

// SetAPIKey stores the ephemeral Anthropic API key in memory only.
func (s *Store) SetAPIKey(key string) {
	s.apiKeyMu.Lock()
	defer s.apiKeyMu.Unlock()
	s.apiKey = key
}

// APIKey returns the current in-memory Anthropic API key, if any.
func (s *Store) APIKey() string {
	s.apiKeyMu.RLock()
	defer s.apiKeyMu.RUnlock()
	return s.apiKey
}

// ClearAPIKey drops the in-memory Anthropic API key.
func (s *Store) ClearAPIKey() {
	s.apiKeyMu.Lock()
	defer s.apiKeyMu.Unlock()
	s.apiKey = ""
}

// SaveSelectorDef writes an authored selector definition to
// selectors/<pageId>/v<n>.json, per §6's selector registry file schema.
func (s *Store) SaveSelectorDef(def selector.SelectorDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(selectorsDirName, def.PageID, versionFileName(def.Version))
	return writeJSON(path, def)
}

// LoadSelectorDefs returns every persisted SelectorDef across all pageIds,
// for seeding a selector.Registry at startup.
func (s *Store) LoadSelectorDefs() ([]selector.SelectorDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root := s.path(selectorsDirName)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "list selector pages")
	}

	var defs []selector.SelectorDef
	for _, pageEntry := range entries {
		if !pageEntry.IsDir() {
			continue
		}
		pageDir := filepath.Join(root, pageEntry.Name())
		files, err := os.ReadDir(pageDir)
		if err != nil {
			return nil, errors.Wrapf(err, "list selector versions for %s", pageEntry.Name())
		}
		var names []string
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
				names = append(names, f.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			var def selector.SelectorDef
			if _, err := readJSON(filepath.Join(pageDir, name), &def); err != nil {
				return nil, errors.Wrapf(err, "decode selector def %s/%s", pageEntry.Name(), name)
			}
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func versionFileName(version int) string {
	return "v" + strconv.Itoa(version) + ".json"
}
