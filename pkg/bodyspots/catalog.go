// Package bodyspots maps internal recording spot keys to the display labels
// used by the long-term store and review tooling.
package bodyspots

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	// Spots maps the device spot key to its body-location label.
	Spots map[string]string `yaml:"spots" json:"spots"`
	// Available lists the labels considered during automatic acceptance.
	// Recordings outside this list are excluded from the quality check.
	Available []string `yaml:"available" json:"available"`
}

// Load reads a catalog file. Every failure path still returns the built-in
// catalog, so a bad file degrades to the defaults instead of an empty
// acceptance allow-list.
func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return DefaultCatalog(), err
	}
	if len(cat.Spots) == 0 {
		return DefaultCatalog(), fmt.Errorf("body spot catalog empty")
	}
	return cat, nil
}

// Label resolves a spot key. ok is false for keys missing from the catalog;
// callers must log the gap rather than drop the recording.
func (c Catalog) Label(key string) (string, bool) {
	label, ok := c.Spots[key]
	return label, ok
}

// IsAvailable reports whether a label participates in automatic acceptance.
func (c Catalog) IsAvailable(label string) bool {
	for _, a := range c.Available {
		if a == label {
			return true
		}
	}
	return false
}

func DefaultCatalog() Catalog {
	return Catalog{
		Spots: map[string]string{
			"mitral":          "Apex",
			"tricuspid":       "Tricuspid",
			"pulmonic":        "Pulmonic",
			"aortic":          "Aortic",
			"rightCarotid":    "Right Carotid",
			"leftCarotid":     "Left Carotid",
			"erbs":            "Erb's",
			"erbsRight":       "Erb's Right",
			"lowerBackLeft":   "Left Lower Lung",
			"lowerBackRight":  "Right Lower Lung",
			"middleBackLeft":  "Middle back left",
			"middleBackRight": "Middle back right",
			"rightAbdomen":    "Right abdomen",
			"leftAbdomen":     "Left abdomen",
		},
		Available: []string{
			"Apex",
			"Tricuspid",
			"Pulmonic",
			"Aortic",
			"Right Carotid",
			"Erb's",
			"Erb's Right",
		},
	}
}
