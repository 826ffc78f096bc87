// Package identity classifies farmer identifiers and resolves them into the
// value and Type discriminator the grievance service expects.
package identity

import (
	"fmt"

	"pmkisan/internal/grievance/models"
)

// Kind is the identity variant.
type Kind int

const (
	KindRegistrationNumber Kind = iota
	KindAadhaar
)

func (k Kind) String() string {
	switch k {
	case KindAadhaar:
		return "aadhaar"
	case KindRegistrationNumber:
		return "registration_number"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Purpose is the operation an identity is resolved for.
type Purpose string

const (
	PurposeCreate Purpose = "create"
	PurposeStatus Purpose = "status"
)

const aadhaarLength = 12

// Identity is a classified identifier.
type Identity struct {
	Kind  Kind
	Value string
}

// Resolved is what goes into a request's IdentityNo and Type fields.
type Resolved struct {
	Value string
	Type  string
}

// Classify returns KindAadhaar iff s is exactly 12 ASCII digits. Everything
// else, including empty or malformed input, is a registration number.
func Classify(s string) Kind {
	if len(s) != aadhaarLength {
		return KindRegistrationNumber
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return KindRegistrationNumber
		}
	}
	return KindAadhaar
}

// Parse classifies s into an Identity.
func Parse(s string) Identity {
	return Identity{Kind: Classify(s), Value: s}
}

var typeFields = map[Kind]map[Purpose]string{
	KindAadhaar: {
		PurposeCreate: models.TypeIdentityNoDetails,
		PurposeStatus: models.TypeIdentityNoStatus,
	},
	KindRegistrationNumber: {
		PurposeCreate: models.TypeRegNoDetails,
		PurposeStatus: models.TypeRegNoStatus,
	},
}

// TypeField returns the Type discriminator for kind and purpose.
func TypeField(kind Kind, purpose Purpose) (string, bool) {
	t, ok := typeFields[kind][purpose]
	return t, ok
}
