// Package consensus computes field-level majority agreement across
// provider results and provider-vs-consensus accuracy over time.
package consensus

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/labeleval/internal/provider"
)

// Threshold is the absolute number of agreeing providers required for a
// field to have consensus. It is tuned to the five-provider deployment
// (>= 60% of completed providers); a different provider count needs a
// deliberate re-derivation, not a silent percentage.
const Threshold = 3

// emptySentinel is the normalized form shared by nil, empty strings,
// empty arrays, and empty objects.
const emptySentinel = "__EMPTY__"

var lowerCaser = cases.Lower(language.Und)

// FieldConsensus is the agreement outcome for one dot-addressable field
// across the completed providers of a single evaluation.
type FieldConsensus struct {
	Field          string              `json:"field"`
	ConsensusValue any                 `json:"consensus_value"`
	AgreementCount int                 `json:"agreement_count"`
	TotalProviders int                 `json:"total_providers"`
	AgreementRate  float64             `json:"agreement_rate"`
	ProviderValues map[provider.ID]any `json:"provider_values"`
	HasConsensus   bool                `json:"has_consensus"`
}

// EvaluationConsensus aggregates field consensus over the tracked field
// paths for one evaluation. Rates are percentages (0-100).
type EvaluationConsensus struct {
	EvaluationID        string           `json:"evaluation_id"`
	TotalFields         int              `json:"total_fields"`
	FieldsWithConsensus int              `json:"fields_with_consensus"`
	ConsensusRate       float64          `json:"consensus_rate"`
	FieldResults        []FieldConsensus `json:"field_results"`
}

// ProviderAccuracy scores one provider against consensus across many
// evaluations: of the consensus-bearing fields it answered, how often did
// it match.
type ProviderAccuracy struct {
	Provider         provider.ID `json:"provider"`
	TotalFields      int         `json:"total_fields"`
	MatchedConsensus int         `json:"matched_consensus"`
	Accuracy         float64     `json:"accuracy"`
}

// Distribution buckets field-level agreement across an evaluation set.
// Bucket edges assume the five-provider universe, like Threshold.
type Distribution struct {
	Full     int `json:"full"`     // all 5 agree
	Strong   int `json:"strong"`   // 4 agree
	Majority int `json:"majority"` // 3 agree
	Split    int `json:"split"`    // no majority
	Total    int `json:"total"`
}

// Normalize maps a value to its comparison form. Nil, empty strings,
// empty arrays, and empty objects all collapse to one empty sentinel;
// strings are case-folded and trimmed; arrays are normalized element-wise
// and compared order-independently. Objects serialize as-is, so two
// objects differing only in nesting shape may compare unequal. Used for
// equality only, never for output.
func Normalize(value any) string {
	switch v := value.(type) {
	case nil:
		return emptySentinel
	case string:
		trimmed := strings.TrimSpace(lowerCaser.String(v))
		if trimmed == "" {
			return emptySentinel
		}
		return trimmed
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		if len(v) == 0 {
			return emptySentinel
		}
		normalized := make([]string, len(v))
		for i, elem := range v {
			normalized[i] = Normalize(elem)
		}
		sort.Strings(normalized)
		out, _ := json.Marshal(normalized)
		return string(out)
	case map[string]any:
		if len(v) == 0 {
			return emptySentinel
		}
		out, _ := json.Marshal(v)
		return string(out)
	default:
		return fmt.Sprint(v)
	}
}

// completedValue is one completed provider's raw value at a field path.
type completedValue struct {
	provider provider.ID
	value    any
}

// completedValues reads the field path from every completed (successful)
// result. Failed providers are silently excluded.
func completedValues(results []provider.Result, fieldPath string) []completedValue {
	var out []completedValue
	for _, r := range results {
		if !r.Success || r.Data == nil {
			continue
		}
		encoded, err := json.Marshal(r.Data)
		if err != nil {
			continue
		}
		out = append(out, completedValue{
			provider: r.Provider,
			value:    gjson.GetBytes(encoded, fieldPath).Value(),
		})
	}
	return out
}

// CalculateFieldConsensus buckets completed providers by their normalized
// value at fieldPath and reports the majority bucket. Ties break to the
// first-encountered maximal bucket in result order — an intentional but
// arbitrary policy. HasConsensus requires Threshold agreeing providers.
func CalculateFieldConsensus(results []provider.Result, fieldPath string) FieldConsensus {
	values := completedValues(results, fieldPath)

	providerValues := make(map[provider.ID]any, len(values))

	type group struct {
		value any
		count int
	}
	var order []string
	groups := make(map[string]*group)

	for _, cv := range values {
		providerValues[cv.provider] = cv.value

		key := Normalize(cv.value)
		g, ok := groups[key]
		if !ok {
			g = &group{value: cv.value}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
	}

	// First-discovered maximal bucket wins ties.
	var consensusValue any
	maxCount := 0
	for _, key := range order {
		if g := groups[key]; g.count > maxCount {
			maxCount = g.count
			consensusValue = g.value
		}
	}

	total := len(values)
	rate := 0.0
	if total > 0 {
		rate = float64(maxCount) / float64(total) * 100
	}

	return FieldConsensus{
		Field:          fieldPath,
		ConsensusValue: consensusValue,
		AgreementCount: maxCount,
		TotalProviders: total,
		AgreementRate:  rate,
		ProviderValues: providerValues,
		HasConsensus:   maxCount >= Threshold,
	}
}

// CalculateEvaluationConsensus computes field consensus for every tracked
// field path, keeping only fields where at least one provider reported a
// non-empty value.
func CalculateEvaluationConsensus(evaluationID string, results []provider.Result, fields []string) EvaluationConsensus {
	if fields == nil {
		fields = DefaultFields()
	}

	var fieldResults []FieldConsensus
	for _, field := range fields {
		fc := CalculateFieldConsensus(results, field)

		anyValue := false
		for _, v := range fc.ProviderValues {
			if Normalize(v) != emptySentinel {
				anyValue = true
				break
			}
		}
		if !anyValue {
			continue
		}

		fieldResults = append(fieldResults, fc)
	}

	withConsensus := 0
	for _, fc := range fieldResults {
		if fc.HasConsensus {
			withConsensus++
		}
	}

	rate := 0.0
	if len(fieldResults) > 0 {
		rate = float64(withConsensus) / float64(len(fieldResults)) * 100
	}

	return EvaluationConsensus{
		EvaluationID:        evaluationID,
		TotalFields:         len(fieldResults),
		FieldsWithConsensus: withConsensus,
		ConsensusRate:       rate,
		FieldResults:        fieldResults,
	}
}

// CalculateProviderAccuracy scores a provider against consensus across
// evaluations. Only consensus-bearing fields the provider answered count.
func CalculateProviderAccuracy(id provider.ID, evaluations []EvaluationConsensus) ProviderAccuracy {
	total := 0
	matched := 0

	for _, ec := range evaluations {
		for _, fc := range ec.FieldResults {
			if !fc.HasConsensus {
				continue
			}
			value, ok := fc.ProviderValues[id]
			if !ok {
				continue
			}
			total++
			if Normalize(value) == Normalize(fc.ConsensusValue) {
				matched++
			}
		}
	}

	accuracy := 0.0
	if total > 0 {
		accuracy = float64(matched) / float64(total) * 100
	}

	return ProviderAccuracy{
		Provider:         id,
		TotalFields:      total,
		MatchedConsensus: matched,
		Accuracy:         accuracy,
	}
}

// CalculateDistribution buckets every consensus field in the evaluation
// set by raw agreement count.
func CalculateDistribution(evaluations []EvaluationConsensus) Distribution {
	var d Distribution
	for _, ec := range evaluations {
		for _, fc := range ec.FieldResults {
			d.Total++
			switch {
			case fc.AgreementCount >= 5:
				d.Full++
			case fc.AgreementCount >= 4:
				d.Strong++
			case fc.AgreementCount >= 3:
				d.Majority++
			default:
				d.Split++
			}
		}
	}
	return d
}
