package telegram

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kitbuilder587/stock-agent/internal/domain"
)

// MaxMessageLength is the Telegram limit for one text message.
const MaxMessageLength = 4096

// FormatRunReport renders a finished run as an HTML message. The markdown
// response is escaped and sent as is, Telegram HTML has no tables.
func FormatRunReport(run domain.Run, agentLabel string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>%s analysis</b> (%s)\n", html.EscapeString(agentLabel), html.EscapeString(run.Mode.String()))
	fmt.Fprintf(&sb, "<b>Stocks:</b> %s\n", html.EscapeString(run.Stocks))
	if run.FilePath != "" {
		fmt.Fprintf(&sb, "<b>Saved:</b> <code>%s</code>\n", html.EscapeString(filepath.Base(run.FilePath)))
	}
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━\n")
	sb.WriteString(html.EscapeString(strings.TrimSpace(run.Response)))

	return sb.String()
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}
		// never cut a multi-byte rune in half
		for splitPoint > 1 && splitPoint < len(text) && !utf8.RuneStart(text[splitPoint]) {
			splitPoint--
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// prefer a newline or space that is not inside a tag
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// inside a tag, move past its end
	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}
