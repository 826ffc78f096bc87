// Package envelope parses the transport wrapper the grievance service answers
// with: {"d": {"__type": "...", "output": "<base64 ciphertext>"}}.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	dErrors "pmkisan/pkg/domain-errors"
)

// ErrInvalid marks a response body that does not have the envelope shape.
var ErrInvalid = errors.New("invalid service envelope")

// Data is the inner object of the envelope.
type Data struct {
	Type   string `json:"__type"`
	Output string `json:"output"`
}

// ServiceEnvelope is the upstream response wrapper.
type ServiceEnvelope struct {
	D Data `json:"d"`
}

// Decrypter opens an envelope's ciphertext into a target value.
type Decrypter interface {
	DecryptInto(ciphertext string, out any) error
}

// Parse validates raw as a ServiceEnvelope. Both d.__type and d.output must
// be present as strings; output must be non-empty.
func Parse(raw []byte) (*ServiceEnvelope, error) {
	var probe struct {
		D *struct {
			Type   *string `json:"__type"`
			Output *string `json:"output"`
		} `json:"d"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&probe); err != nil {
		return nil, invalid(fmt.Errorf("%w: %v", ErrInvalid, err))
	}
	switch {
	case probe.D == nil:
		return nil, invalid(fmt.Errorf("%w: missing d", ErrInvalid))
	case probe.D.Type == nil:
		return nil, invalid(fmt.Errorf("%w: missing d.__type", ErrInvalid))
	case probe.D.Output == nil || *probe.D.Output == "":
		return nil, invalid(fmt.Errorf("%w: missing d.output", ErrInvalid))
	}
	return &ServiceEnvelope{D: Data{Type: *probe.D.Type, Output: *probe.D.Output}}, nil
}

// Unwrap decrypts the envelope's output into out. Errors from the decrypter
// are returned unchanged.
func (e *ServiceEnvelope) Unwrap(d Decrypter, out any) error {
	return d.DecryptInto(e.D.Output, out)
}

func invalid(err error) error {
	return dErrors.Wrap(err, dErrors.CodeProtocol, "grievance service returned an invalid response envelope")
}
