package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
)

// decodeTopResults reads top_results as written by every client version:
// a list of {disease, probability} objects, a list of bare disease names,
// or either of those double-encoded as a JSON string. Entries that are not
// objects become zero-score candidates. Anything that is not a list yields
// no candidates.
func decodeTopResults(data []byte) ([]diagnosis.Candidate, error) {
	out := []diagnosis.Candidate{}
	if len(data) == 0 {
		return out, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return out, fmt.Errorf("decoding top results: %w", err)
	}
	if encoded, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(encoded), &v); err != nil {
			return out, fmt.Errorf("decoding double-encoded top results: %w", err)
		}
	}
	entries, ok := v.([]any)
	if !ok {
		return out, nil
	}
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			out = append(out, diagnosis.Candidate{Disease: stringify(e)})
			continue
		}
		c := diagnosis.Candidate{Disease: "Unknown"}
		if d, ok := obj["disease"]; ok {
			c.Disease = stringify(d)
		}
		score, err := toScore(obj["probability"])
		if err != nil {
			return out, fmt.Errorf("top result %q: %w", c.Disease, err)
		}
		c.Score = score
		out = append(out, c)
	}
	return out, nil
}

// decodeJourney reads user_journey, stringifying non-string values.
// A non-object document yields an empty map.
func decodeJourney(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding journey metadata: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		out[k] = stringify(v)
	}
	return out, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func toScore(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("probability %q is not a number", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("probability of type %T", v)
	}
}
