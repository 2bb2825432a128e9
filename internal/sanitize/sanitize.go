// Package sanitize converts markdown-flavored model output into plain
// chat-safe text with emoji bullets.
//
// Completion models routinely emit markdown emphasis and headings even when
// instructed not to. Telegram renders those literally in plain-text mode,
// so the relay rewrites them before delivery.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	boldSpan    = regexp.MustCompile(`(?s)\*\*\s*(.+?)\s*\*\*`)
	italicSpan  = regexp.MustCompile(`(?s)\*\s*(.+?)\s*\*`)
	listMarker  = regexp.MustCompile(`^[-*]\s+`)
	headingLine = regexp.MustCompile(`(?m)^#{1,6}\s*(.+)$`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// Reformat rewrites markdown-like constructs in raw model output:
//
//	**text** and *text*  ->  🔹 text
//	- item / * item      ->  🔸 item
//	# Heading            ->  🔹 Heading
//
// Runs of three or more newlines collapse to two, and the result is trimmed.
// Rules apply in order; unbalanced markers simply fail to match and pass
// through verbatim. Reformat is total: any input yields an output.
func Reformat(raw string) string {
	text := boldSpan.ReplaceAllString(raw, "🔹 ${1}")
	text = italicSpan.ReplaceAllString(text, "🔹 ${1}")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		stripped := strings.TrimLeft(line, " \t")
		if listMarker.MatchString(stripped) {
			lines[i] = "🔸 " + listMarker.ReplaceAllString(stripped, "")
		}
	}
	text = strings.Join(lines, "\n")

	text = headingLine.ReplaceAllString(text, "🔹 ${1}")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
