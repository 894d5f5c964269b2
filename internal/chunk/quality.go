package chunk

import (
	"strings"

	"github.com/AxiomOrient/Dendrite/internal/identity"
)

// scoreQuality implements §4.4.7: length fitness, structural importance, and
// content-shape heuristics combined by successive averaging.
func scoreQuality(content string, tokenCount, maxTokens identity.TokenCount, avgImportance float64) float64 {
	score := 1.0

	if maxTokens > 0 {
		ratio := float64(tokenCount) / float64(maxTokens)
		if ratio < 0.1 {
			score *= 0.7
		} else if ratio > 0.9 {
			score *= 0.9
		}
	}

	score = (score + avgImportance) / 2

	contentScore := scoreContent(content)
	score = (score + contentScore) / 2

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func scoreContent(content string) float64 {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0
	}
	if len(trimmed) < 10 {
		return 0.3
	}

	score := 0.7
	if hasCompleteSentence(trimmed) {
		score += 0.2
	}
	if strings.ContainsAny(trimmed, ":-•") {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// hasCompleteSentence looks for a segment (split on '.', '!', '?') longer
// than 5 characters whose first non-space character is an ASCII letter, per
// the ASCII-only sentence heuristic recorded for this scoring step.
func hasCompleteSentence(content string) bool {
	for _, seg := range splitAny(content, ".!?") {
		trimmed := strings.TrimSpace(seg)
		if len(trimmed) > 5 && isASCIILetter(trimmed[0]) {
			return true
		}
	}
	return false
}

func splitAny(s string, cutset string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(cutset, r)
	})
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// averageImportance averages the structural importance of a set of
// contributing nodes; an empty set contributes 0.
func averageImportance(importances []float64) float64 {
	if len(importances) == 0 {
		return 0
	}
	var sum float64
	for _, v := range importances {
		sum += v
	}
	return sum / float64(len(importances))
}
