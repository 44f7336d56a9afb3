package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOCRText_ProductNameFromTopLines(t *testing.T) {
	data := ParseOCRText("VitaBoost Immune Gummies\n60 gummies\nDietary Supplement")
	assert.Equal(t, "VitaBoost Immune Gummies", data.ProductName)
}

func TestParseOCRText_KeepsRawText(t *testing.T) {
	raw := "Some Label\nLine two"
	data := ParseOCRText(raw)
	assert.Equal(t, raw, data.RawOCRText)
}

func TestParseOCRText_LotAndExpiration(t *testing.T) {
	data := ParseOCRText("Pain Relief Tablets\nLOT: A1B2C3\nEXP 06/25/2026")
	assert.Equal(t, "A1B2C3", data.LotNumber)
	assert.Equal(t, "06/25/2026", data.ExpirationDate)
}

func TestParseOCRText_WarningsAndDirections(t *testing.T) {
	data := ParseOCRText("Sleep Aid\nWarning: do not drive\nDirections: take one before bed\nStore at room temperature")
	require.Len(t, data.Warnings, 1)
	assert.Contains(t, data.Warnings[0], "do not drive")
	assert.Contains(t, data.DosageInstructions, "take one")
	assert.Contains(t, data.StorageConditions, "room temperature")
}

func TestParseOCRText_DrugFactsSection(t *testing.T) {
	text := `Cold Medicine
Drug Facts
Active ingredients
Acetaminophen 325 mg
Uses
temporarily relieves minor aches
Warnings
do not exceed recommended dose
Directions
adults take 2 tablets
Other information
store below 25C`

	data := ParseOCRText(text)
	require.NotNil(t, data.DrugFacts)
	require.Len(t, data.DrugFacts.ActiveIngredients, 1)
	assert.Equal(t, "Acetaminophen 325 mg", data.DrugFacts.ActiveIngredients[0].Name)
	assert.Contains(t, data.DrugFacts.Uses, "temporarily relieves minor aches")
	assert.Contains(t, data.DrugFacts.Warnings, "do not exceed recommended dose")
	assert.Contains(t, data.DrugFacts.Directions, "adults take 2 tablets")
}

func TestParseOCRText_SupplementFactsSection(t *testing.T) {
	text := `Daily Multivitamin
Supplement Facts
Serving Size: 2 gummies
Vitamin C 90 mg
Zinc 11 mg
Other ingredients
glucose syrup
pectin`

	data := ParseOCRText(text)
	require.NotNil(t, data.SupplementFacts)
	assert.Equal(t, "2 gummies", data.SupplementFacts.ServingSize)
	require.Len(t, data.SupplementFacts.Ingredients, 2)
	assert.Equal(t, "Vitamin C", data.SupplementFacts.Ingredients[0].Name)
	assert.Equal(t, "90 mg", data.SupplementFacts.Ingredients[0].Amount)
	assert.Contains(t, data.SupplementFacts.OtherIngredients, "glucose syrup")
	assert.Contains(t, data.SupplementFacts.OtherIngredients, "pectin")
}

func TestParseOCRText_NoSections(t *testing.T) {
	data := ParseOCRText("Just a product\nnothing else useful here today")
	assert.Nil(t, data.DrugFacts)
	assert.Nil(t, data.SupplementFacts)
	assert.Equal(t, "Just a product", data.ProductName)
}
