package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSONArray = errors.New("no JSON array in model output")

// ParseRecommendations extracts a JSON array of recommendations from model
// text. Models wrap JSON in prose or code fences, so this is best effort:
// the outermost [...] span is decoded and entries without a title are dropped.
func ParseRecommendations(text string) ([]Recommendation, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, errNoJSONArray
	}

	var raw []Recommendation
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}

	recs := make([]Recommendation, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		if r.Priority == "" {
			r.Priority = PriorityLow
		}
		if r.SuggestedActions == nil {
			r.SuggestedActions = []string{}
		}
		recs = append(recs, r)
	}

	return recs, nil
}
