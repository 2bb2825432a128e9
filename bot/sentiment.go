package bot

import (
	"regexp"
	"strings"
)

var sentimentLabel = regexp.MustCompile(`(?i)\b(positive|negative|neutral)\b`)

// formatSentiment flattens the model's sentiment verdict to one line and
// extracts the first recognizable label, defaulting to neutral when the
// model ignored the requested format.
func formatSentiment(raw string) string {
	flattened := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))

	label := "neutral"
	if m := sentimentLabel.FindString(flattened); m != "" {
		label = strings.ToLower(m)
	}
	return "🔎 Sentiment: " + label + "\n💬 " + flattened
}
