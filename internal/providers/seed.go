package providers

import (
	"fmt"
	"os"
	"slices"

	"github.com/ethanbaker/tollsync/pkg/tolls"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

// catalogFile is the YAML layout of a provider catalog override
type catalogFile struct {
	Providers []catalogEntry `yaml:"providers"`
}

// catalogEntry overrides the catalog row of one provider. Unset fields keep the
// built-in value.
type catalogEntry struct {
	ID               string          `yaml:"id"`
	Name             string          `yaml:"name"`
	ProviderType     string          `yaml:"provider_type"`
	APIEndpoint      string          `yaml:"api_endpoint"`
	SupportedRegions []string        `yaml:"supported_regions"`
	Features         map[string]bool `yaml:"features"`
	Active           *bool           `yaml:"active"`
}

// CatalogRows returns the provider rows to seed the store with: one active row per
// supported provider, overlaid with the YAML file at path when path is set
func CatalogRows(path string) ([]tolls.Provider, error) {
	rows := make(map[string]*tolls.Provider, len(catalog))
	for id, info := range catalog {
		rows[id] = &tolls.Provider{
			ID:               id,
			Name:             info.Name,
			ProviderType:     info.ProviderType,
			APIEndpoint:      info.APIEndpoint,
			SupportedRegions: datatypes.JSONSlice[string](slices.Clone(info.SupportedRegions)),
			Features:         datatypes.NewJSONType(cloneInfo(info).Features),
			Active:           true,
		}
	}

	if path != "" {
		entries, err := readCatalogFile(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			overlay(rows, entry)
		}
	}

	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]tolls.Provider, 0, len(ids))
	for _, id := range ids {
		out = append(out, *rows[id])
	}
	return out, nil
}

func readCatalogFile(path string) ([]catalogEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse provider catalog: %w", err)
	}

	for i, entry := range file.Providers {
		if entry.ID == "" {
			return nil, fmt.Errorf("provider catalog entry %d has no id", i)
		}
	}
	return file.Providers, nil
}

// overlay applies one catalog entry. Providers without an adapter are added inactive
// unless the entry says otherwise.
func overlay(rows map[string]*tolls.Provider, entry catalogEntry) {
	row, ok := rows[entry.ID]
	if !ok {
		row = &tolls.Provider{ID: entry.ID, Name: entry.ID}
		rows[entry.ID] = row
	}

	if entry.Name != "" {
		row.Name = entry.Name
	}
	if entry.ProviderType != "" {
		row.ProviderType = entry.ProviderType
	}
	if entry.APIEndpoint != "" {
		row.APIEndpoint = entry.APIEndpoint
	}
	if entry.SupportedRegions != nil {
		row.SupportedRegions = datatypes.JSONSlice[string](entry.SupportedRegions)
	}
	if entry.Features != nil {
		row.Features = datatypes.NewJSONType(entry.Features)
	}
	if entry.Active != nil {
		row.Active = *entry.Active
	}
}
