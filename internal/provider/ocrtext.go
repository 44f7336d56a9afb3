package provider

import (
	"regexp"
	"strings"

	"github.com/sells-group/labeleval/internal/label"
)

var (
	lotRe        = regexp.MustCompile(`(?i)lot[#:\s]*([A-Z0-9]+)`)
	expRe        = regexp.MustCompile(`(?i)exp(?:ires?|iration)?[:\s]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|\w+\s+\d{4})`)
	amountRe     = regexp.MustCompile(`(?i)(\d+[\d,.]*)\s*(mg|mcg|iu|g|%)`)
	servingRe    = regexp.MustCompile(`(?i)serving size[:\s]*`)
	leadDigitsRe = regexp.MustCompile(`\d`)
)

// ParseOCRText segments raw OCR output into the shared record shape by
// pattern-matching section headers and common label fields. Generative
// models do this job better; this keeps the OCR-only provider on the same
// contract as the rest.
func ParseOCRText(text string) *label.ExtractedData {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}

	data := &label.ExtractedData{RawOCRText: text}

	for i, line := range lines {
		lower := strings.ToLower(line)

		// The product name is usually one of the first prominent lines.
		if i < 3 && data.ProductName == "" && len(line) > 3 && len(line) < 100 {
			data.ProductName = line
		}

		if strings.Contains(lower, "drug facts") && data.DrugFacts == nil {
			data.DrugFacts = extractDrugFactsSection(lines, i)
		}

		if strings.Contains(lower, "supplement facts") && data.SupplementFacts == nil {
			data.SupplementFacts = extractSupplementFactsSection(lines, i)
		}

		if m := lotRe.FindStringSubmatch(line); m != nil {
			data.LotNumber = m[1]
		}

		if m := expRe.FindStringSubmatch(line); m != nil {
			data.ExpirationDate = m[1]
		}

		if strings.Contains(lower, "warning") || strings.Contains(lower, "caution") {
			data.Warnings = append(data.Warnings, line)
		}

		if strings.Contains(lower, "direction") || strings.Contains(lower, "dosage") || strings.Contains(lower, "take ") {
			data.DosageInstructions = line
		}

		if strings.Contains(lower, "store") || strings.Contains(lower, "storage") {
			data.StorageConditions = line
		}
	}

	return data
}

func extractDrugFactsSection(lines []string, start int) *label.DrugFacts {
	df := &label.DrugFacts{}
	section := ""

	end := min(start+50, len(lines))
	for i := start + 1; i < end; i++ {
		line := lines[i]
		lower := strings.ToLower(line)

		switch {
		// "inactive ingredient" must be checked first: it contains the
		// "active ingredient" substring.
		case strings.Contains(lower, "inactive ingredient"):
			section = "inactive"
		case strings.Contains(lower, "active ingredient"):
			section = "active"
		case strings.Contains(lower, "use") || strings.Contains(lower, "purpose"):
			section = "uses"
		case strings.Contains(lower, "warning"):
			section = "warnings"
		case strings.Contains(lower, "direction"):
			section = "directions"
		case strings.Contains(lower, "other information"):
			// Drug Facts panels typically end here.
			return df
		default:
			if len(line) <= 2 {
				continue
			}
			switch section {
			case "active":
				df.ActiveIngredients = append(df.ActiveIngredients, label.ActiveIngredient{Name: line})
			case "inactive":
				df.InactiveIngredients = append(df.InactiveIngredients, line)
			case "uses":
				df.Uses = append(df.Uses, line)
			case "warnings":
				df.Warnings = append(df.Warnings, line)
			case "directions":
				df.Directions = strings.TrimSpace(df.Directions + " " + line)
			}
		}
	}

	return df
}

func extractSupplementFactsSection(lines []string, start int) *label.SupplementFacts {
	sf := &label.SupplementFacts{}

	end := min(start+30, len(lines))
	for i := start + 1; i < end; i++ {
		line := lines[i]
		lower := strings.ToLower(line)

		switch {
		case strings.Contains(lower, "serving size"):
			sf.ServingSize = strings.TrimSpace(servingRe.ReplaceAllString(line, ""))
		case strings.Contains(lower, "other ingredient"):
			tail := min(i+10, len(lines))
			for j := i + 1; j < tail; j++ {
				if len(lines[j]) > 2 {
					sf.OtherIngredients = append(sf.OtherIngredients, lines[j])
				}
			}
			return sf
		case amountRe.MatchString(line):
			name := line
			if loc := leadDigitsRe.FindStringIndex(line); loc != nil {
				name = strings.TrimSpace(line[:loc[0]])
			}
			sf.Ingredients = append(sf.Ingredients, label.SupplementIngredient{
				Name:   name,
				Amount: amountRe.FindString(line),
			})
		}
	}

	return sf
}
