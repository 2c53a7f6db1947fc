package matcher

import "strings"

const maxImplicitAssumptions = 2

// PrepareItemText joins every deep belief with the leading implicit
// assumptions into the text that gets embedded.
func PrepareItemText(item Item) string {
	parts := make([]string, 0, len(item.DeepBeliefs)+maxImplicitAssumptions)
	parts = appendTrimmed(parts, item.DeepBeliefs...)
	assumptions := item.ImplicitAssumptions
	if len(assumptions) > maxImplicitAssumptions {
		assumptions = assumptions[:maxImplicitAssumptions]
	}
	parts = appendTrimmed(parts, assumptions...)
	return strings.Join(parts, " ")
}

// JudgeText is the text shown to the judge: the first deep belief, or the
// embedding text when the item has none.
func JudgeText(item Item) string {
	for _, belief := range item.DeepBeliefs {
		if trimmed := strings.TrimSpace(belief); trimmed != "" {
			return trimmed
		}
	}
	return PrepareItemText(item)
}

// CategoryText is the text embedded for a narrative worldview.
func CategoryText(title, summary, logicChain string, keyConcepts []string) string {
	parts := make([]string, 0, 3+len(keyConcepts))
	parts = appendTrimmed(parts, title, summary, logicChain)
	parts = appendTrimmed(parts, keyConcepts...)
	return strings.Join(parts, " ")
}

func appendTrimmed(dst []string, values ...string) []string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			dst = append(dst, trimmed)
		}
	}
	return dst
}
