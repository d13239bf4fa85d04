// Package evaluation implements the evaluation orchestration core: it
// turns one content-evaluation request into LLM calls, parses the
// semi-structured output into typed metric scores, computes the weighted
// overall score, and degrades to documented fallbacks when the model
// fails or returns malformed output.
package evaluation

import (
	"encoding/json"
	"strings"

	"github.com/backloghq/response-evaluator/internal/domain"
)

// ExtractJSON locates and decodes the JSON object embedded in a model
// response. Models frequently wrap JSON in prose, so extraction is
// deliberately lenient: it slices from the first '{' to the last '}' in
// the trimmed text.
//
// It is equally deliberately unforgiving about nesting: no bracket-depth
// matching is performed, so a stray trailing '}' inside prose after the
// object will widen the slice and fail the decode. Known limitation,
// kept for parity with the established response contract.
//
// Returns domain.ErrNoJSONFound when no candidate substring exists and a
// *domain.MalformedJSONError when the substring does not decode.
func ExtractJSON(raw string) (map[string]json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return nil, domain.ErrNoJSONFound
	}

	snippet := trimmed[start : end+1]

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(snippet), &decoded); err != nil {
		return nil, &domain.MalformedJSONError{Snippet: snippet, Err: err}
	}

	return decoded, nil
}
