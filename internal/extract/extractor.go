// Package extract converts free-text vacancies into structured attribute
// records via a generative model. Extraction is best-effort by contract:
// unparseable model output becomes a failure-marker record, never an error,
// so the pipeline degrades to plain normalized text instead of aborting.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/joblens/matcher/internal/models"
)

// Extractor produces a structured record for vacancy text. The returned
// record may be a parse-failure marker (Failed() == true); an error means the
// model itself could not be reached, not that its output was malformed.
type Extractor interface {
	Extract(ctx context.Context, text string) (*models.VacancyAttributes, error)
}

// ParseAttributes recovers a VacancyAttributes record from raw model output.
// Generative models wrap answers in markdown fences, prepend chatter, or both,
// so recovery is layered: the last ```json fence wins, otherwise the last
// balanced JSON object in the text. Anything unrecoverable yields a failure
// marker carrying the raw output.
func ParseAttributes(raw string) *models.VacancyAttributes {
	jsonStr, ok := fencedJSON(raw)
	if !ok {
		jsonStr, ok = lastJSONObject(raw)
	}

	if !ok {
		return &models.VacancyAttributes{ParseError: "JSON not found", Raw: raw}
	}

	var attrs models.VacancyAttributes
	if err := json.Unmarshal([]byte(jsonStr), &attrs); err != nil {
		return &models.VacancyAttributes{ParseError: "JSON parse error", Raw: raw}
	}

	// A record parsed from a fence could itself be a stored failure marker;
	// keep it as-is either way.
	return &attrs
}

// fencedJSON returns the contents of the last ```json code fence, if any.
func fencedJSON(raw string) (string, bool) {
	const marker = "```json"

	start := strings.LastIndex(raw, marker)
	if start == -1 {
		return "", false
	}

	rest := raw[start+len(marker):]

	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}

	return strings.TrimSpace(rest[:end]), true
}

// lastJSONObject scans backwards from the last closing brace for its matching
// opener and returns that slice. The model's answer comes last, after any
// reasoning it decided to share.
func lastJSONObject(raw string) (string, bool) {
	lastBrace := strings.LastIndexByte(raw, '}')
	if lastBrace == -1 {
		return "", false
	}

	depth := 0
	for i := lastBrace; i >= 0; i-- {
		switch raw[i] {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return raw[i : lastBrace+1], true
			}
		}
	}

	return "", false
}
