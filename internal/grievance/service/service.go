// Package service implements the two grievance operations offered to the
// agent layer: submitting a grievance and checking grievance status.
//
// Both return user-facing text. Conditions the user can fix (bad grievance
// type, short description, unregistered Aadhaar, missing configuration) come
// back as domain errors carrying guidance; timeouts and upstream failures
// come back as apologetic text with a nil error.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"pmkisan/internal/audit"
	"pmkisan/internal/grievance/catalog"
	"pmkisan/internal/grievance/client"
	"pmkisan/internal/grievance/identity"
	"pmkisan/internal/grievance/models"
	"pmkisan/internal/platform/metrics"
	dErrors "pmkisan/pkg/domain-errors"
	"pmkisan/pkg/requestcontext"
)

// MinDescriptionLength is counted in characters after trimming.
const MinDescriptionLength = 10

const (
	MsgDescriptionTooShort = "Please provide a brief grievance description."
	MsgUnreachable         = "Unable to reach grievance service. Please try again."
	MsgUnavailable         = "Grievance service is currently unavailable. Please try again later."
)

// Upstream is the grievance service client.
type Upstream interface {
	Token() string
	LodgeGrievance(ctx context.Context, req models.CreateGrievanceRequest) (json.RawMessage, error)
	StatusCheck(ctx context.Context, req models.StatusRequest) (json.RawMessage, error)
}

// IdentityResolver turns a raw identity into the IdentityNo value and Type
// discriminator for a request.
type IdentityResolver interface {
	Resolve(ctx context.Context, identityNo string, purpose identity.Purpose) (identity.Resolved, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) bool
}

type operation struct {
	name       string
	action     audit.Action
	timedOut   string
	unexpected string
}

var (
	opSubmit = operation{
		name:       "submit_grievance",
		action:     audit.ActionGrievanceSubmitted,
		timedOut:   "Grievance submission timed out. Please try again.",
		unexpected: "Unexpected error while submitting grievance.",
	}
	opStatus = operation{
		name:       "grievance_status",
		action:     audit.ActionStatusChecked,
		timedOut:   "Grievance status check timed out. Please try again.",
		unexpected: "Unexpected error while checking grievance status.",
	}
)

type Service struct {
	upstream Upstream
	resolver IdentityResolver
	catalog  *catalog.Catalog
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  AuditPublisher
	hasher   *audit.SubjectHasher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithSubjectHasher sets the keyed hash recorded as the audit subject.
// Without one, events carry no subject.
func WithSubjectHasher(h *audit.SubjectHasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

func New(upstream Upstream, resolver IdentityResolver, types *catalog.Catalog, opts ...Option) (*Service, error) {
	if upstream == nil {
		return nil, errors.New("grievance upstream is required")
	}
	if resolver == nil {
		return nil, errors.New("identity resolver is required")
	}
	if types == nil {
		types = catalog.New()
	}
	s := &Service{
		upstream: upstream,
		resolver: resolver,
		catalog:  types,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GrievanceTypes lists the accepted grievance type labels in catalog order.
func (s *Service) GrievanceTypes() []string {
	return s.catalog.Labels()
}

// SubmitGrievance lodges a grievance for identityNo, an Aadhaar number or
// PM-KISAN registration number.
func (s *Service) SubmitGrievance(ctx context.Context, identityNo, description, grievanceType string) (string, error) {
	identityNo = strings.TrimSpace(identityNo)
	out, err := s.submit(ctx, identityNo, description, grievanceType)
	return s.finish(ctx, opSubmit, identityNo, out, err)
}

func (s *Service) submit(ctx context.Context, identityNo, description, grievanceType string) (string, error) {
	code, ok := s.catalog.Code(grievanceType)
	if !ok {
		return "", dErrors.New(dErrors.CodeValidation, invalidTypeMessage(grievanceType, s.catalog.Labels()))
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return "", dErrors.New(dErrors.CodeValidation, MsgDescriptionTooShort)
	}

	resolved, err := s.resolver.Resolve(ctx, identityNo, identity.PurposeCreate)
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "submitting grievance",
		"type", resolved.Type,
		"grievance_code", code,
	)
	raw, err := s.upstream.LodgeGrievance(ctx,
		models.NewCreateGrievanceRequest(resolved.Type, s.upstream.Token(), resolved.Value, code, description))
	if err != nil {
		return "", err
	}
	return models.FormatSubmission(raw), nil
}

// GrievanceStatus reports the most recent grievance on record for identityNo.
func (s *Service) GrievanceStatus(ctx context.Context, identityNo string) (string, error) {
	identityNo = strings.TrimSpace(identityNo)
	out, err := s.status(ctx, identityNo)
	return s.finish(ctx, opStatus, identityNo, out, err)
}

func (s *Service) status(ctx context.Context, identityNo string) (string, error) {
	resolved, err := s.resolver.Resolve(ctx, identityNo, identity.PurposeStatus)
	if err != nil {
		return "", err
	}
	raw, err := s.upstream.StatusCheck(ctx,
		models.NewStatusRequest(resolved.Type, s.upstream.Token(), resolved.Value))
	if err != nil {
		return "", err
	}
	return models.FormatStatus(raw), nil
}

// finish converts err into either user-facing text or a guidance error and
// records the outcome.
func (s *Service) finish(ctx context.Context, op operation, identityNo, out string, err error) (string, error) {
	outcome := audit.OutcomeSuccess
	if err != nil {
		out, err = s.render(ctx, op, err)
		outcome = audit.OutcomeFailed
		if err != nil && dErrors.CodeOf(err) != dErrors.CodeInternal {
			outcome = audit.OutcomeRejected
		}
	}

	s.metrics.IncrementOperation(op.name, string(outcome))
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Timestamp:     requestcontext.Now(ctx),
			Action:        op.action,
			IdentityKind:  identity.Classify(identityNo).String(),
			SubjectIDHash: s.hasher.Hash(identityNo),
			Outcome:       outcome,
			RequestID:     requestcontext.RequestID(ctx),
		})
	}
	return out, err
}

func (s *Service) render(ctx context.Context, op operation, err error) (string, error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeIdentityResolution:
		return "", err
	case dErrors.CodeConfiguration:
		s.logger.ErrorContext(ctx, "grievance service not configured", "operation", op.name, "error", err)
		return "", err
	case dErrors.CodeTimeout:
		s.logger.ErrorContext(ctx, "grievance call timed out", "operation", op.name, "error", err)
		return op.timedOut, nil
	case dErrors.CodeTransport:
		s.logger.ErrorContext(ctx, "grievance network error", "operation", op.name, "error", err)
		var unavailable *client.ServiceUnavailableError
		if errors.As(err, &unavailable) {
			return fmt.Sprintf("Grievance service unavailable (HTTP %d). Please try again later.", unavailable.Status), nil
		}
		return MsgUnreachable, nil
	case dErrors.CodeProtocol:
		s.logger.ErrorContext(ctx, "grievance service answered with an unreadable response", "operation", op.name, "error", err)
		return MsgUnavailable, nil
	default:
		s.logger.ErrorContext(ctx, "unexpected grievance error", "operation", op.name, "error", err)
		return "", dErrors.Wrap(err, dErrors.CodeInternal, op.unexpected)
	}
}

func invalidTypeMessage(got string, labels []string) string {
	return fmt.Sprintf(`Invalid grievance type: "%s". Please select from: "%s".`, got, strings.Join(labels, `", "`))
}
