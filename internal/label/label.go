// Package label defines the structured data extracted from product-label
// images. The JSON field names here are a stable contract: stored results
// serialize with these names and the consensus engine addresses into them
// by dot path (e.g. "drug_facts.directions").
package label

// FormulationType classifies the physical form of a product.
type FormulationType string

// Known formulation types.
const (
	FormulationTablet      FormulationType = "tablet"
	FormulationCapsule     FormulationType = "capsule"
	FormulationSoftgel     FormulationType = "softgel"
	FormulationLiquid      FormulationType = "liquid"
	FormulationPowder      FormulationType = "powder"
	FormulationCream       FormulationType = "cream"
	FormulationGel         FormulationType = "gel"
	FormulationOintment    FormulationType = "ointment"
	FormulationPatch       FormulationType = "patch"
	FormulationSpray       FormulationType = "spray"
	FormulationDrops       FormulationType = "drops"
	FormulationInjection   FormulationType = "injection"
	FormulationSuppository FormulationType = "suppository"
	FormulationLozenge     FormulationType = "lozenge"
	FormulationGummy       FormulationType = "gummy"
)

// ExtractedData is the structured payload recovered from one provider's
// answer for one label image. Every field is optional; Valid defines the
// minimum for a usable record.
type ExtractedData struct {
	ProductName        string           `json:"product_name,omitempty"`
	Brand              string           `json:"brand,omitempty"`
	Manufacturer       string           `json:"manufacturer,omitempty"`
	NDCCode            string           `json:"ndc_code,omitempty"`
	UPCCode            string           `json:"upc_code,omitempty"`
	FormulationType    FormulationType  `json:"formulation_type,omitempty"`
	DrugFacts          *DrugFacts       `json:"drug_facts,omitempty"`
	SupplementFacts    *SupplementFacts `json:"supplement_facts,omitempty"`
	DosageInstructions string           `json:"dosage_instructions,omitempty"`
	Warnings           []string         `json:"warnings_contraindications,omitempty"`
	DrugInteractions   []string         `json:"drug_interactions,omitempty"`
	StorageConditions  string           `json:"storage_conditions,omitempty"`
	LotNumber          string           `json:"lot_number,omitempty"`
	ExpirationDate     string           `json:"expiration_date,omitempty"`
	NetContents        string           `json:"net_contents,omitempty"`
	CountryOfOrigin    string           `json:"country_of_origin,omitempty"`

	// RawOCRText carries the full OCR output when the record was built by
	// the text-segmentation path rather than a generative model.
	RawOCRText string `json:"_raw_ocr_text,omitempty"`
}

// Valid reports whether the record meets the minimum-viability invariant:
// at least one of product name, drug facts, or supplement facts is present.
func (d *ExtractedData) Valid() bool {
	if d == nil {
		return false
	}
	return d.ProductName != "" || d.DrugFacts != nil || d.SupplementFacts != nil
}

// DrugFacts captures an OTC Drug Facts panel.
type DrugFacts struct {
	ActiveIngredients   []ActiveIngredient `json:"active_ingredients,omitempty"`
	InactiveIngredients []string           `json:"inactive_ingredients,omitempty"`
	Uses                []string           `json:"uses,omitempty"`
	Warnings            []string           `json:"warnings,omitempty"`
	Directions          string             `json:"directions,omitempty"`
	OtherInfo           string             `json:"other_info,omitempty"`
}

// ActiveIngredient is one active-ingredient row in a Drug Facts panel.
type ActiveIngredient struct {
	Name    string `json:"name"`
	Amount  string `json:"amount,omitempty"`
	Unit    string `json:"unit,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// SupplementFacts captures a Supplement Facts panel.
type SupplementFacts struct {
	ServingSize          string                 `json:"serving_size,omitempty"`
	ServingsPerContainer *float64               `json:"servings_per_container,omitempty"`
	Ingredients          []SupplementIngredient `json:"ingredients,omitempty"`
	OtherIngredients     []string               `json:"other_ingredients,omitempty"`
}

// SupplementIngredient is one ingredient row in a Supplement Facts panel.
type SupplementIngredient struct {
	Name              string   `json:"name"`
	Amount            string   `json:"amount,omitempty"`
	Unit              string   `json:"unit,omitempty"`
	DailyValuePercent *float64 `json:"daily_value_percent,omitempty"`
}
