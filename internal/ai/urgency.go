package ai

import (
	"regexp"
	"strconv"
	"strings"
)

// defaultUrgency is assumed when the model omits the marker.
const defaultUrgency = 50

var urgencyPattern = regexp.MustCompile(`\[URGENCY_SCORE:\s*(\d+)\]\s*`)

// parseUrgency extracts the urgency score from a model response and
// returns it alongside the response with every marker stripped. A
// missing marker yields the default middle score; out-of-range values
// are clamped to 0..100.
func parseUrgency(content string) (int, string) {
	urgency := defaultUrgency

	if match := urgencyPattern.FindStringSubmatch(content); match != nil {
		if parsed, err := strconv.Atoi(match[1]); err == nil {
			urgency = clampUrgency(parsed)
		}
	}

	cleaned := urgencyPattern.ReplaceAllString(content, "")
	return urgency, strings.TrimSpace(cleaned)
}

func clampUrgency(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
