package record

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxPostRunes bounds the rendered notification text. 280 runes keeps posts
// within the tightest common social transport limit.
const maxPostRunes = 280

// PostText renders the record as a single public post of at most
// maxPostRunes runes. The summary is shortened first so the page URL
// survives truncation; only when the headline and URL alone overrun the
// bound is the whole post clamped.
func PostText(rec *EnforcementRecord) string {
	head := headline(rec) + "."
	tail := " " + rec.PageURL

	budget := maxPostRunes - utf8.RuneCountInString(head) - utf8.RuneCountInString(tail) - 1
	summary := strings.TrimSpace(rec.Summary)
	text := head + tail
	if summary != "" && budget > 1 {
		text = head + " " + truncate(summary, budget) + tail
	}
	return truncate(text, maxPostRunes)
}

func headline(rec *EnforcementRecord) string {
	date := rec.ActionDate.Format("2 January 2006")
	switch {
	case rec.PenaltyAmount != "":
		return fmt.Sprintf("%s fined %s on %s", rec.Organisation, rec.PenaltyAmount, date)
	case rec.ActionType != ActionUnknown:
		return fmt.Sprintf("%s issued to %s on %s", actionLabel(rec.ActionType), rec.Organisation, date)
	default:
		return fmt.Sprintf("%s, %s", rec.Organisation, date)
	}
}

func actionLabel(t ActionType) string {
	switch t {
	case ActionEnforcementNotice:
		return "Enforcement notice"
	case ActionMonetaryPenalty:
		return "Monetary penalty"
	case ActionUndertaking:
		return "Undertaking"
	default:
		return "Enforcement action"
	}
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}
