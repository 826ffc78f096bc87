package identity

import (
	"context"
	"fmt"
	"log/slog"

	"pmkisan/internal/grievance/models"
	dErrors "pmkisan/pkg/domain-errors"
)

// NotRegisteredMessage is relayed to the user when the token exchange does
// not recognise an Aadhaar number.
const NotRegisteredMessage = "The provided Aadhaar number is not registered with PM-KISAN. " +
	"Please provide the Aadhaar number registered with PM-KISAN or your PM-KISAN registration number."

// TokenExchanger converts an Aadhaar number into a service-scoped token.
type TokenExchanger interface {
	AadhaarToken(ctx context.Context, aadhaar string) (*models.AadhaarTokenResponse, error)
}

// Resolver turns raw identity strings into request-ready values.
//
// Registration numbers resolve locally. Aadhaar numbers need one upstream
// round trip: Start -> NeedToken -> Ready, or Failed when the token exchange
// answers negatively or with an empty token.
type Resolver struct {
	tokens TokenExchanger
	logger *slog.Logger
}

type ResolverOption func(*Resolver)

func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(tokens TokenExchanger, opts ...ResolverOption) *Resolver {
	r := &Resolver{tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve classifies identityNo and returns the IdentityNo value and Type
// field to send for purpose.
func (r *Resolver) Resolve(ctx context.Context, identityNo string, purpose Purpose) (Resolved, error) {
	id := Parse(identityNo)
	typeField, ok := TypeField(id.Kind, purpose)
	if !ok {
		return Resolved{}, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unknown identity purpose %q", purpose))
	}

	if id.Kind == KindRegistrationNumber {
		return Resolved{Value: id.Value, Type: typeField}, nil
	}

	resp, err := r.tokens.AadhaarToken(ctx, id.Value)
	if err != nil {
		return Resolved{}, err
	}
	if !resp.OK() || resp.AadhaarToken == "" {
		reason := resp.Message
		if reason == "" {
			reason = "unknown error"
		}
		r.logger.WarnContext(ctx, "aadhaar token lookup failed", "reason", reason)
		return Resolved{}, dErrors.New(dErrors.CodeIdentityResolution, NotRegisteredMessage)
	}
	return Resolved{Value: resp.AadhaarToken, Type: typeField}, nil
}
