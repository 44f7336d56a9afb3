package consensus

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// defaultFields is the fixed list of tracked field paths: top-level
// identity fields, cannabis fields, and the nested panel fields that
// providers disagree on most.
var defaultFields = []string{
	// Top-level fields
	"product_name",
	"brand",
	"manufacturer",
	"formulation_type",
	"ndc_code",
	"upc_code",
	"lot_number",
	"expiration_date",
	"net_contents",
	"dosage_instructions",
	"storage_conditions",
	// Cannabis info fields
	"cannabis_info.thc_content",
	"cannabis_info.cbd_content",
	"cannabis_info.strain_name",
	"cannabis_info.product_type",
	// Drug facts fields
	"drug_facts.directions",
	// Supplement facts fields
	"supplement_facts.serving_size",
	"supplement_facts.servings_per_container",
}

// DefaultFields returns a copy of the built-in tracked field list.
func DefaultFields() []string {
	out := make([]string, len(defaultFields))
	copy(out, defaultFields)
	return out
}

// LoadFields reads a tracked-field list from a YAML file. An empty path
// returns the defaults.
func LoadFields(path string) ([]string, error) {
	if path == "" {
		return DefaultFields(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "consensus: read fields file %s", path)
	}

	var wrapper struct {
		Consensus struct {
			Fields []string `yaml:"fields"`
		} `yaml:"consensus"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "consensus: parse fields file")
	}

	if len(wrapper.Consensus.Fields) == 0 {
		return DefaultFields(), nil
	}
	return wrapper.Consensus.Fields, nil
}
