package entity

import "strings"

// SpeciesTraits say what touching a plant of a species does.
type SpeciesTraits struct {
	Food   bool `yaml:"food" json:"food"`
	Deadly bool `yaml:"deadly" json:"deadly"`
}

// SpeciesCatalog maps species tags to traits. Unknown species are neither
// food nor deadly.
type SpeciesCatalog map[string]SpeciesTraits

var DefaultCatalog = SpeciesCatalog{
	DefaultSpecies: {Food: true},
}

func (c SpeciesCatalog) Lookup(species string) SpeciesTraits {
	if c == nil {
		return SpeciesTraits{}
	}
	if tr, ok := c[species]; ok {
		return tr
	}
	return c[strings.ToUpper(strings.TrimSpace(species))]
}
