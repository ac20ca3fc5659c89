package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hylin/bookcrawl/models"
	"gopkg.in/yaml.v3"
)

type targetsFile struct {
	Targets []models.Target `yaml:"targets"`
}

// LoadTargets reads the crawl target list from a YAML file. Any malformed
// entry is a ConfigError: the run aborts before the first fetch rather
// than crawling a partial list.
func LoadTargets(path string) ([]models.Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "targets", Reason: fmt.Sprintf("read %s: %v", path, err)}
	}

	var parsed targetsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, &ConfigError{Field: "targets", Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}
	if len(parsed.Targets) == 0 {
		return nil, &ConfigError{Field: "targets", Reason: fmt.Sprintf("%s contains no targets", path)}
	}

	for i, t := range parsed.Targets {
		if err := validateTarget(t); err != nil {
			return nil, &ConfigError{Field: "targets", Reason: fmt.Sprintf("entry %d: %v", i, err)}
		}
	}
	return parsed.Targets, nil
}

func validateTarget(t models.Target) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if strings.TrimSpace(t.URL) == "" {
		return fmt.Errorf("missing url for %q", t.Name)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("unknown kind %q for %q", t.Kind, t.Name)
	}
	return nil
}

// LoadCategoryTargets expands a category-tree JSON file (as produced by
// the category generator) into one paginated-listing target per
// subcategory. The tree is walked depth first so the fan-out order is
// stable.
func LoadCategoryTargets(path string) ([]models.Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "categories", Reason: fmt.Sprintf("read %s: %v", path, err)}
	}

	var tree []models.Category
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, &ConfigError{Field: "categories", Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}

	var targets []models.Target
	for _, category := range tree {
		for _, sub := range category.Subcategories {
			targets = appendCategoryTargets(targets, sub)
		}
	}
	if len(targets) == 0 {
		return nil, &ConfigError{Field: "categories", Reason: fmt.Sprintf("%s contains no subcategories", path)}
	}
	return targets, nil
}

func appendCategoryTargets(targets []models.Target, c models.Category) []models.Target {
	if c.Link != "" && c.Name != "" {
		targets = append(targets, models.Target{
			Name: c.Name,
			URL:  c.Link,
			Kind: models.KindListing,
		})
	}
	for _, sub := range c.Subcategories {
		targets = appendCategoryTargets(targets, sub)
	}
	return targets
}
