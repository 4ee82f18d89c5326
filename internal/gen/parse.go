package gen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseStory validates the provider's structured story response. Models
// occasionally fence the JSON in markdown even when asked not to, so fences
// are stripped before decoding.
func parseStory(raw string) (StoryDraft, error) {
	raw = stripFences(strings.TrimSpace(raw))

	var draft StoryDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return StoryDraft{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(draft.Title) == "" {
		return StoryDraft{}, fmt.Errorf("%w: missing title", ErrMalformedResponse)
	}
	if len(draft.Paragraphs) == 0 {
		return StoryDraft{}, fmt.Errorf("%w: missing paragraphs", ErrMalformedResponse)
	}
	for i, p := range draft.Paragraphs {
		draft.Paragraphs[i] = strings.TrimSpace(p)
	}
	return draft, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
