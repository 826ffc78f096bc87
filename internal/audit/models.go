package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	dErrors "pmkisan/pkg/domain-errors"
)

// Action names a grievance operation.
type Action string

const (
	ActionGrievanceSubmitted Action = "grievance_submitted"
	ActionStatusChecked      Action = "grievance_status_checked"
)

// Outcome is the coarse result of an operation: "success", "rejected" for
// guidance errors, "failed" for transport or protocol failures.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Event is emitted from the grievance service to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           string
	Timestamp    time.Time
	Action       Action
	IdentityKind string
	// SubjectIDHash is the keyed hash of the Aadhaar or registration number.
	// The raw identity is never recorded.
	SubjectIDHash string
	Outcome       Outcome
	RequestID     string
}

// MinHashKeyLength is the shortest key NewSubjectHasher accepts.
const MinHashKeyLength = 16

// SubjectHasher maps identities to HMAC-SHA256 digests. Aadhaar numbers span
// only 10^12 values, so an unkeyed digest could be enumerated back.
type SubjectHasher struct {
	key []byte
}

func NewSubjectHasher(key []byte) (*SubjectHasher, error) {
	if len(key) < MinHashKeyLength {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("audit hash key must be at least %d bytes", MinHashKeyLength))
	}
	return &SubjectHasher{key: append([]byte(nil), key...)}, nil
}

// Hash returns the hex HMAC of identityNo. A nil hasher returns "".
func (h *SubjectHasher) Hash(identityNo string) string {
	if h == nil {
		return ""
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(identityNo))
	return hex.EncodeToString(mac.Sum(nil))
}
