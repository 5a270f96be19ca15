package record

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrNormalization marks a candidate whose identity-forming fields are
// missing or malformed. Callers skip such candidates; they never abort a run.
var ErrNormalization = errors.New("candidate failed normalization")

// sourceDateLayout matches how the regulator renders dates, e.g. "21 December 2017".
const sourceDateLayout = "2 January 2006"

var (
	pdfIDPattern   = regexp.MustCompile(`/(\d+)/`)
	typePattern    = regexp.MustCompile(`/action-weve-taken/([^/]+)/`)
	penaltyPattern = regexp.MustCompile(`£[\d,]+(?:\.\d+)?`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Normalize turns one raw candidate into a canonical EnforcementRecord.
// It is a pure function: the same raw input always yields the same record,
// identity key included.
func Normalize(raw Raw) (*EnforcementRecord, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrNormalization)
	}
	pageURL := strings.TrimSpace(raw.PageURL)
	if pageURL == "" {
		return nil, fmt.Errorf("%w: missing page URL", ErrNormalization)
	}
	date, err := time.Parse(sourceDateLayout, strings.TrimSpace(raw.Date))
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable date %q", ErrNormalization, raw.Date)
	}

	pdfURL := strings.TrimSpace(raw.PDFURL)
	pdfID := parsePDFID(pdfURL)
	return &EnforcementRecord{
		IdentityKey:   IdentityKey(title, date, reference(pdfID, pageURL)),
		Organisation:  title,
		ActionDate:    date,
		ActionType:    parseActionType(pdfURL),
		PenaltyAmount: penaltyPattern.FindString(raw.Description),
		Summary:       strings.TrimSpace(raw.Description),
		PageURL:       pageURL,
		PDFURL:        pdfURL,
		PDFID:         pdfID,
	}, nil
}

// IdentityKey derives the stable identity of an action from its
// identity-forming fields. Case and whitespace variance in the source text
// must not change the key.
func IdentityKey(organisation string, date time.Time, ref string) string {
	joined := strings.Join([]string{
		canonical(organisation),
		date.Format("2006-01-02"),
		canonical(ref),
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

func canonical(s string) string {
	return spacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// reference prefers the PDF id as the action's reference number; pages
// published without a PDF fall back to the page URL path.
func reference(pdfID, pageURL string) string {
	if pdfID != "" {
		return pdfID
	}
	if u, err := url.Parse(pageURL); err == nil && u.Path != "" {
		return strings.TrimRight(u.Path, "/")
	}
	return pageURL
}

func parsePDFID(pdfURL string) string {
	m := pdfIDPattern.FindStringSubmatch(pdfURL)
	if m == nil {
		return ""
	}
	return m[1]
}

func parseActionType(pdfURL string) ActionType {
	m := typePattern.FindStringSubmatch(pdfURL)
	if m == nil {
		return ActionUnknown
	}
	switch m[1] {
	case "enforcement-notices":
		return ActionEnforcementNotice
	case "mpns":
		return ActionMonetaryPenalty
	case "undertakings":
		return ActionUndertaking
	default:
		return ActionUnknown
	}
}
