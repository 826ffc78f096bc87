// Package tools exposes the grievance operations as agent tools: a name, a
// description, a JSON Schema for the arguments and a CallTool entry point.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	dErrors "pmkisan/pkg/domain-errors"
)

const (
	SubmitGrievance = "submit_grievance"
	GrievanceStatus = "grievance_status"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Tool describes one tool for discovery.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Grievances is the operation surface the tools dispatch to.
type Grievances interface {
	SubmitGrievance(ctx context.Context, identityNo, description, grievanceType string) (string, error)
	GrievanceStatus(ctx context.Context, identityNo string) (string, error)
	GrievanceTypes() []string
}

type handler func(ctx context.Context, args json.RawMessage) (string, error)

// Registry holds the grievance tools.
type Registry struct {
	grievances Grievances
	tools      []Tool
	handlers   map[string]handler
	logger     *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func New(grievances Grievances, opts ...Option) (*Registry, error) {
	if grievances == nil {
		return nil, errors.New("grievance service is required")
	}
	r := &Registry{grievances: grievances, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	submitSchema, err := json.Marshal(submitGrievanceSchema(grievances.GrievanceTypes()))
	if err != nil {
		return nil, fmt.Errorf("encoding %s schema: %w", SubmitGrievance, err)
	}
	statusSchema, err := json.Marshal(grievanceStatusSchema())
	if err != nil {
		return nil, fmt.Errorf("encoding %s schema: %w", GrievanceStatus, err)
	}

	r.tools = []Tool{
		{
			Name: SubmitGrievance,
			Description: "Create and submit a grievance to the PM-KISAN portal. " +
				"Returns a user-friendly message summarizing the submission outcome.",
			InputSchema: submitSchema,
		},
		{
			Name: GrievanceStatus,
			Description: "Check grievance status by PM-KISAN registration number or registered Aadhaar number. " +
				"Returns the registration number, grievance dates and officer reply, or an explanation if nothing is found.",
			InputSchema: statusSchema,
		},
	}
	r.handlers = map[string]handler{
		SubmitGrievance: r.submitGrievance,
		GrievanceStatus: r.grievanceStatus,
	}
	return r, nil
}

// Tools returns the tool descriptions in a stable order.
func (r *Registry) Tools() []Tool {
	return append([]Tool(nil), r.tools...)
}

// CallTool runs the named tool. A non-nil error means the call could not be
// dispatched (unknown tool, arguments that are not a JSON object) or failed
// with an error nobody can act on. Failures the user or an operator can act
// on are returned as output with isError set.
func (r *Registry) CallTool(ctx context.Context, name string, arguments json.RawMessage) (output string, isError bool, err error) {
	h, ok := r.handlers[name]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	if len(bytes.TrimSpace(arguments)) == 0 {
		arguments = json.RawMessage(`{}`)
	}

	out, err := h(ctx, arguments)
	if err == nil {
		return out, false, nil
	}
	if errors.Is(err, ErrInvalidArguments) {
		return "", false, err
	}
	if !dErrors.NeedsGuidance(err) {
		r.logger.ErrorContext(ctx, "tool failed", "tool", name, "error", err)
		return "", false, err
	}

	r.logger.InfoContext(ctx, "tool returned guidance",
		"tool", name,
		"code", string(dErrors.CodeOf(err)),
	)
	return dErrors.MessageOf(err), true, nil
}

type submitGrievanceArgs struct {
	IdentityNo           string `json:"identity_no"`
	GrievanceDescription string `json:"grievance_description"`
	GrievanceType        string `json:"grievance_type"`
}

func (r *Registry) submitGrievance(ctx context.Context, raw json.RawMessage) (string, error) {
	var args submitGrievanceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.IdentityNo == "" {
		return "", missing("identity_no")
	}
	return r.grievances.SubmitGrievance(ctx, args.IdentityNo, args.GrievanceDescription, args.GrievanceType)
}

type grievanceStatusArgs struct {
	IdentityNo string `json:"identity_no"`
}

func (r *Registry) grievanceStatus(ctx context.Context, raw json.RawMessage) (string, error) {
	var args grievanceStatusArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.IdentityNo == "" {
		return "", missing("identity_no")
	}
	return r.grievances.GrievanceStatus(ctx, args.IdentityNo)
}

func decodeArgs(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func missing(field string) error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Missing required argument %q.", field))
}
