package record

import "time"

// ActionType classifies the kind of enforcement action the regulator took,
// derived from the slug of the published PDF URL.
type ActionType string

const (
	ActionEnforcementNotice ActionType = "enforcement-notice"
	ActionMonetaryPenalty   ActionType = "monetary-penalty"
	ActionUndertaking       ActionType = "undertaking"
	ActionUnknown           ActionType = ""
)

// EnforcementRecord represents one published enforcement action.
//
// IdentityKey is the stable identity of the action across runs; every other
// display field may drift when the regulator revises a page after
// publication, and such drift never re-triggers a notification.
type EnforcementRecord struct {
	IdentityKey    string
	Organisation   string
	ActionDate     time.Time
	ActionType     ActionType
	PenaltyAmount  string
	Summary        string
	PageURL        string
	PDFURL         string
	PDFID          string
	FirstSeenRunID string // set once when first persisted, never mutated
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Raw is one unvalidated candidate as extracted from the source pages.
// All fields are untrusted text; Normalize is the only way in.
type Raw struct {
	Title       string
	Date        string
	Description string
	PageURL     string
	PDFURL      string
}
