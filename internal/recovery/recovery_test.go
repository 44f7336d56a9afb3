package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/labeleval/internal/label"
)

func TestClean_StripsPreamble(t *testing.T) {
	in := "Here is the extracted JSON:\n{\"product_name\": \"Aspirin\"}"
	assert.Equal(t, `{"product_name": "Aspirin"}`, Clean(in))
}

func TestClean_StripsPostscript(t *testing.T) {
	in := "{\"product_name\": \"Aspirin\"}\n\nNote: some fields were unreadable."
	assert.Equal(t, `{"product_name": "Aspirin"}`, Clean(in))
}

func TestClean_StripsBoth(t *testing.T) {
	in := "Based on my analysis of the label, here is the data:\n" +
		`{"product_name": "Aspirin"}` +
		"\n\nLet me know if you need anything else!"
	assert.Equal(t, `{"product_name": "Aspirin"}`, Clean(in))
}

func TestClean_LeavesPlainJSONAlone(t *testing.T) {
	in := `{"product_name": "Aspirin", "brand": "Bayer"}`
	assert.Equal(t, in, Clean(in))
}

func TestRecover_DirectJSON(t *testing.T) {
	data, ok := Recover(`{"product_name": "Tylenol", "brand": "J&J"}`)
	require.True(t, ok)
	assert.Equal(t, "Tylenol", data.ProductName)
	assert.Equal(t, "J&J", data.Brand)
}

func TestRecover_FencedCodeBlock(t *testing.T) {
	in := "```json\n{\"product_name\": \"Advil\"}\n```"
	data, ok := Recover(in)
	require.True(t, ok)
	assert.Equal(t, "Advil", data.ProductName)
}

func TestRecover_FencedBlockWithoutLanguage(t *testing.T) {
	in := "```\n{\"product_name\": \"Advil\"}\n```"
	data, ok := Recover(in)
	require.True(t, ok)
	assert.Equal(t, "Advil", data.ProductName)
}

func TestRecover_BraceSpan(t *testing.T) {
	in := `The label shows {"product_name": "Motrin", "brand": "McNeil"} as best I can tell.`
	data, ok := Recover(in)
	require.True(t, ok)
	assert.Equal(t, "Motrin", data.ProductName)
}

func TestRecover_NestedBraces(t *testing.T) {
	in := `prefix {"product_name": "X", "drug_facts": {"directions": "take one"}} suffix`
	data, ok := Recover(in)
	require.True(t, ok)
	require.NotNil(t, data.DrugFacts)
	assert.Equal(t, "take one", data.DrugFacts.Directions)
}

func TestRecover_UnparsableText(t *testing.T) {
	data, ok := Recover("I could not read the label, sorry.")
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestRecover_EmptyString(t *testing.T) {
	data, ok := Recover("")
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestRecover_MalformedJSONEverywhere(t *testing.T) {
	data, ok := Recover("```json\n{broken\n``` and {also broken}")
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestValidate_ProductNameSuffices(t *testing.T) {
	assert.NoError(t, Validate(&label.ExtractedData{ProductName: "Aleve"}))
}

func TestValidate_DrugFactsSuffice(t *testing.T) {
	assert.NoError(t, Validate(&label.ExtractedData{DrugFacts: &label.DrugFacts{}}))
}

func TestValidate_SupplementFactsSuffice(t *testing.T) {
	assert.NoError(t, Validate(&label.ExtractedData{SupplementFacts: &label.SupplementFacts{}}))
}

func TestValidate_EmptyRecordFails(t *testing.T) {
	err := Validate(&label.ExtractedData{RawOCRText: "some text"})
	assert.ErrorIs(t, err, ErrMissingRequired)
}
