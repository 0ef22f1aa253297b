package conversation

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

const (
	menuSchedule = 1
	menuFAQ      = 2
)

var (
	menuWords    = []string{"0", "menu", "メニュー"}
	declineWords = []string{"いいえ", "no", "修正", "やり直し"}
)

// normalizeInput folds full-width digits and latin letters to ASCII and
// half-width katakana to full-width.
func normalizeInput(text string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(text)))
}

// parseChoice reads a 1-based option number such as "2", "２" or "2番".
func parseChoice(text string) (int, bool) {
	text = normalizeInput(text)
	text = strings.TrimSuffix(text, "番")
	text = strings.TrimSuffix(text, ".")

	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}

	return n, true
}

func isMenuRequest(text string) bool {
	text = normalizeInput(text)

	for _, word := range menuWords {
		if text == word {
			return true
		}
	}

	return false
}

func isDecline(text string) bool {
	text = normalizeInput(text)

	for _, word := range declineWords {
		if text == word || strings.HasPrefix(text, word+"、") || strings.HasPrefix(text, word+",") {
			return true
		}
	}

	return strings.HasPrefix(text, "いいえ")
}
