package judge

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are an expert at matching perceptions to worldviews. Always respond in valid JSON."

// BuildPrompt renders the user message listing every candidate by index.
func BuildPrompt(req Request) (string, error) {
	if len(req.Candidates) == 0 {
		return "", ErrNoCandidates
	}

	listing, err := json.MarshalIndent(req.Candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	var b strings.Builder
	b.WriteString("Choose the worldview that best explains the following perception.\n\n")
	b.WriteString("Perception (deep belief):\n")
	b.WriteString(strings.TrimSpace(req.Text))
	b.WriteString("\n\nWorldviews:\n")
	b.Write(listing)
	b.WriteString("\n\nReturn only a JSON object of the form:\n")
	b.WriteString(`{"best_match_index": 0, "confidence": 0.95}`)
	b.WriteString("\n\nbest_match_index must be one of the listed indexes. ")
	b.WriteString("confidence is a number between 0 and 1 expressing how sure you are of the match.\n")
	return b.String(), nil
}
