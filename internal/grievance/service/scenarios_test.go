package service_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmkisan/internal/audit"
	"pmkisan/internal/grievance/catalog"
	"pmkisan/internal/grievance/client"
	"pmkisan/internal/grievance/grievancetest"
	"pmkisan/internal/grievance/identity"
	"pmkisan/internal/grievance/service"
	dErrors "pmkisan/pkg/domain-errors"
)

type harness struct {
	upstream *grievancetest.Upstream
	audit    *audit.Publisher
	service  *service.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	u := grievancetest.NewUpstream(t)

	c, err := client.New(client.Config{BaseURL: u.URL, Token: grievancetest.Token}, u.Crypto, client.WithLogger(logger))
	require.NoError(t, err)

	pub := audit.NewPublisher(16)
	svc, err := service.New(c, identity.NewResolver(c, identity.WithLogger(logger)),
		catalog.New(catalog.Pair{Label: "Payment Issue", Code: "PMT01"}),
		service.WithLogger(logger),
		service.WithAuditPublisher(pub),
	)
	require.NoError(t, err)
	return &harness{upstream: u, audit: pub, service: svc}
}

func TestScenarioA_AadhaarSubmission(t *testing.T) {
	h := newHarness(t)
	h.upstream.Respond(client.PathAadhaarToken, map[string]string{"Responce": "True", "AadhaarToken": "tok-abc"})
	h.upstream.Respond(client.PathLodgeGrievance, map[string]string{"Responce": "True", "message": "Grievance registered successfully"})

	out, err := h.service.SubmitGrievance(context.Background(), "123456789012", "Installment not credited since April", "Payment Issue")
	require.NoError(t, err)
	assert.Equal(t, "Grievance registered successfully", out)

	reqs := h.upstream.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, map[string]any{
		"Type":       "IdentityNo_Details",
		"TokenNo":    grievancetest.Token,
		"IdentityNo": "123456789012",
	}, reqs[0].Body)
	assert.Equal(t, map[string]any{
		"Type":                 "IdentityNo_Details",
		"TokenNo":              grievancetest.Token,
		"IdentityNo":           "tok-abc",
		"GrievanceType":        "PMT01",
		"GrievanceDescription": "Installment not credited since April",
	}, reqs[1].Body)
}

func TestAadhaarStatusStillExchangesWithDetailsType(t *testing.T) {
	h := newHarness(t)
	h.upstream.Respond(client.PathAadhaarToken, map[string]string{"Responce": "True", "AadhaarToken": "tok-abc"})
	h.upstream.Respond(client.PathStatusCheck, map[string]any{"Responce": "False", "message": "No record"})

	out, err := h.service.GrievanceStatus(context.Background(), "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "No record", out)

	reqs := h.upstream.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "IdentityNo_Details", reqs[0].Body["Type"])
	assert.Equal(t, "IdentityNo_Status", reqs[1].Body["Type"])
	assert.Equal(t, "tok-abc", reqs[1].Body["IdentityNo"])
}

func TestScenarioB_RegistrationNumberStatus(t *testing.T) {
	h := newHarness(t)
	h.upstream.Respond(client.PathStatusCheck, map[string]any{"Responce": "True", "details": []any{}})

	out, err := h.service.GrievanceStatus(context.Background(), "27AB1234567")
	require.NoError(t, err)
	assert.Equal(t, "No grievance details available.", out)

	assert.Equal(t, []string{client.PathStatusCheck}, h.upstream.Paths())
	assert.Equal(t, map[string]any{
		"Type":       "Reg_No_Status",
		"TokenNo":    grievancetest.Token,
		"IdentityNo": "27AB1234567",
	}, h.upstream.Requests()[0].Body)
}

func TestScenarioC_UnregisteredAadhaar(t *testing.T) {
	h := newHarness(t)
	h.upstream.Respond(client.PathAadhaarToken, map[string]string{"Responce": "False", "message": "not found"})

	out, err := h.service.GrievanceStatus(context.Background(), "123456789012")
	assert.Empty(t, out)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeIdentityResolution))
	assert.Contains(t, dErrors.MessageOf(err), "not registered with PM-KISAN")
	assert.Equal(t, []string{client.PathAadhaarToken}, h.upstream.Paths())
}

func TestScenarioD_OnlyFirstRecordShown(t *testing.T) {
	h := newHarness(t)
	h.upstream.Respond(client.PathStatusCheck, map[string]any{
		"Responce": "True",
		"details": []map[string]string{
			{"Reg_No": "R1", "GrievanceDate": "01/02/2024", "GrievanceDescription": "first", "OfficerReply": "Resolved", "OfficeReplyDate": "05/02/2024"},
			{"Reg_No": "R2", "GrievanceDate": "03/03/2024", "GrievanceDescription": "second"},
		},
	})

	out, err := h.service.GrievanceStatus(context.Background(), "27AB1234567")
	require.NoError(t, err)
	assert.Equal(t, "Registration Number: R1\n"+
		"Grievance Details:\n"+
		"  Date: 01/02/2024\n"+
		"  Description: first\n"+
		"Officer Response:\n"+
		"  Reply: Resolved\n"+
		"  Reply Date: 05/02/2024", out)
	assert.NotContains(t, out, "R2")
}

func TestScenarioE_UpstreamFailureIsText(t *testing.T) {
	h := newHarness(t)
	h.upstream.Fail(client.PathLodgeGrievance, http.StatusInternalServerError)

	out, err := h.service.SubmitGrievance(context.Background(), "27AB1234567", "Installment not credited", "Payment Issue")
	require.NoError(t, err)
	assert.Contains(t, out, "unavailable")

	select {
	case e := <-h.audit.Events():
		assert.Equal(t, audit.OutcomeFailed, e.Outcome)
		assert.Equal(t, "registration_number", e.IdentityKind)
	default:
		t.Fatal("expected an audit event")
	}
}

func TestInvalidTypeMakesNoNetworkCall(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.SubmitGrievance(context.Background(), "123456789012", "Installment not credited", "Unknown")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, dErrors.MessageOf(err), `"Payment Issue"`)
	assert.Empty(t, h.upstream.Requests())
}

func TestUnconfiguredClientIsGuidance(t *testing.T) {
	cfgErr := dErrors.New(dErrors.CodeConfiguration, "grievance crypto keys not configured; set GRIEVANCE_KEY_1 and GRIEVANCE_KEY_2")
	disabled := client.Disabled{Err: cfgErr}
	svc, err := service.New(disabled, identity.NewResolver(disabled), catalog.New())
	require.NoError(t, err)

	for _, id := range []string{"123456789012", "27AB1234567"} {
		_, err := svc.GrievanceStatus(context.Background(), id)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration), id)
	}
}
