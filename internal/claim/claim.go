// Package claim holds the claim lifecycle rules and the thread-access
// policy for item conversations. It is pure: no storage, no transport.
package claim

import "strings"

// Status is the claim lifecycle state of an item.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// NormalizeStatus maps unknown or empty values (legacy records predate the
// claim_status column) to StatusNone.
func NormalizeStatus(raw string) Status {
	switch Status(raw) {
	case StatusNone, StatusPending, StatusApproved, StatusRejected:
		return Status(raw)
	default:
		return StatusNone
	}
}

// Claimed reports the derived claimed flag: true iff the claim was approved.
func Claimed(s Status) bool {
	return s == StatusApproved
}

// CanRequest reports whether a new claim request is accepted from the
// current state. Re-requesting while pending overwrites the claimer, and a
// rejected item may be claimed again; an approved item is settled.
func CanRequest(s Status) bool {
	return s != StatusApproved
}

// CanResolve reports whether an admin decision is accepted from the current
// state. Approved and rejected are terminal for a claim attempt.
func CanResolve(s Status) bool {
	return s == StatusPending
}

// Action is an admin resolution verb.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction validates a resolution verb from a request body.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionApprove:
		return ActionApprove, true
	case ActionReject:
		return ActionReject, true
	default:
		return "", false
	}
}

// Resolve returns the status after applying an admin action.
func (a Action) Resolve() Status {
	if a == ActionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// ClaimerKind discriminates how the claimer is recorded on an item.
type ClaimerKind int

const (
	// ClaimerNone means no claim has been attached to the item.
	ClaimerNone ClaimerKind = iota
	// ClaimerByID is the current form: the claimer's user id is stored.
	ClaimerByID
	// ClaimerByName is the legacy form: only a display string was stored.
	ClaimerByName
)

// Claimer is the tagged union over the two storage forms plus absence, so
// the access policy can match exhaustively instead of duck-typing fields.
type Claimer struct {
	Kind ClaimerKind
	ID   string // set when Kind == ClaimerByID
	Name string // set when Kind == ClaimerByName
}

// NewClaimer builds a Claimer from the raw item columns. An id wins over a
// legacy display string when both are present.
func NewClaimer(claimerID, legacyName string) Claimer {
	if claimerID != "" {
		return Claimer{Kind: ClaimerByID, ID: claimerID}
	}
	if legacyName != "" {
		return Claimer{Kind: ClaimerByName, Name: legacyName}
	}
	return Claimer{Kind: ClaimerNone}
}

// Identity is the authenticated principal evaluating against the policy.
type Identity struct {
	ID      string
	Name    string
	Email   string
	IsAdmin bool
}

// Matches reports whether an identity is the recorded claimer. Legacy
// records stored whatever the claim form sent, so a by-name claimer is
// matched against the display name, the email, and the user id.
func (c Claimer) Matches(id Identity) bool {
	if id.ID == "" {
		return false
	}
	switch c.Kind {
	case ClaimerByID:
		return id.ID == c.ID
	case ClaimerByName:
		return c.Name == id.Name || c.Name == id.Email || c.Name == id.ID
	default:
		return false
	}
}

// Intent distinguishes reads from writes at policy call sites. The rules
// are currently identical for both, matching the reference behavior.
type Intent string

const (
	IntentRead  Intent = "read"
	IntentWrite Intent = "write"
)

// Decision is the policy outcome for a thread access check.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

// ThreadItem is the slice of an item the policy needs.
type ThreadItem struct {
	ReportedBy string // empty when the item was reported anonymously
	Claimer    Claimer
}

// CanAccess decides thread access for one call. It must be re-evaluated on
// every read and write: the claim state can change between calls.
//
// Admins and the reporter always have access. Once a claimer exists the
// thread narrows to reporter/claimer/admin; before that it is an open
// inquiry channel for any authenticated user.
func CanAccess(item ThreadItem, id Identity, intent Intent) Decision {
	_ = intent
	if id.IsAdmin {
		return Allow
	}
	if id.ID == "" {
		return DenyUnauthenticated
	}
	if item.ReportedBy != "" && id.ID == item.ReportedBy {
		return Allow
	}
	if item.Claimer.Kind == ClaimerNone {
		return Allow
	}
	if item.Claimer.Matches(id) {
		return Allow
	}
	return DenyForbidden
}
