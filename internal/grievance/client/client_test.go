package client

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"pmkisan/internal/grievance/aead"
	"pmkisan/internal/grievance/envelope"
	"pmkisan/internal/grievance/grievancetest"
	"pmkisan/internal/grievance/models"
	"pmkisan/internal/platform/metrics"
	dErrors "pmkisan/pkg/domain-errors"
	"pmkisan/pkg/platform/circuit"
	"pmkisan/pkg/requestcontext"
)

type ClientSuite struct {
	suite.Suite
	upstream *grievancetest.Upstream
	logs     *bytes.Buffer
	metrics  *metrics.Metrics
	client   *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.upstream = grievancetest.NewUpstream(s.T())
	s.logs = &bytes.Buffer{}
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.client = s.newClient(Config{BaseURL: s.upstream.URL + "/", Token: grievancetest.Token})
}

func (s *ClientSuite) newClient(cfg Config) *Client {
	logger := slog.New(slog.NewJSONHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err := New(cfg, s.upstream.Crypto, WithLogger(logger), WithMetrics(s.metrics))
	s.Require().NoError(err)
	return c
}

func (s *ClientSuite) TestNew() {
	s.Run("missing base URL is a configuration error", func() {
		_, err := New(Config{}, s.upstream.Crypto)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	s.Run("missing crypto is a configuration error", func() {
		_, err := New(Config{BaseURL: "http://example.test"}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	})
}

func (s *ClientSuite) TestPostEncryptedSendsSealedWrapper() {
	s.upstream.Respond(PathStatusCheck, map[string]string{"Responce": "True"})
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")

	env, err := s.client.PostEncrypted(ctx, PathStatusCheck, models.NewStatusRequest(models.TypeRegNoStatus, "PMK_TEST", "27AB1234567"))
	s.Require().NoError(err)
	s.Equal(grievancetest.TypeName, env.D.Type)

	reqs := s.upstream.Requests()
	s.Require().Len(reqs, 1)
	s.Equal("/GrievanceStatusCheck", reqs[0].Path)
	s.Equal("application/json", reqs[0].Header.Get("Content-Type"))
	s.Equal("application/json", reqs[0].Header.Get("Accept"))
	s.Equal("req-1", reqs[0].Header.Get("X-Request-ID"))
	s.Equal(map[string]any{"Type": "Reg_No_Status", "TokenNo": "PMK_TEST", "IdentityNo": "27AB1234567"}, reqs[0].Body)
	s.NotContains(reqs[0].Wrapper.EncryptedRequest, "27AB1234567")

	s.Equal(1.0, promtest.ToFloat64(s.metrics.UpstreamRequests.WithLabelValues(PathStatusCheck, "ok")))
}

func (s *ClientSuite) TestPlaintextIdentityNeverLogged() {
	s.upstream.Respond(PathAadhaarToken, map[string]string{"Responce": "True", "AadhaarToken": "tok-abc"})

	_, err := s.client.AadhaarToken(context.Background(), "123456789012")
	s.Require().NoError(err)

	s.Contains(s.logs.String(), "grievance api request")
	s.Contains(s.logs.String(), "EncryptedRequest")
	s.NotContains(s.logs.String(), "123456789012")
}

func (s *ClientSuite) TestAadhaarToken() {
	s.upstream.Respond(PathAadhaarToken, map[string]string{"Responce": "True", "AadhaarToken": "tok-abc"})

	resp, err := s.client.AadhaarToken(context.Background(), "123456789012")
	s.Require().NoError(err)
	s.True(resp.OK())
	s.Equal("tok-abc", resp.AadhaarToken)

	reqs := s.upstream.Requests()
	s.Require().Len(reqs, 1)
	s.Equal(map[string]any{"Type": "IdentityNo_Details", "TokenNo": "PMK_TEST", "IdentityNo": "123456789012"}, reqs[0].Body)
}

func (s *ClientSuite) TestLodgeAndStatusReturnDecryptedPayload() {
	s.upstream.Respond(PathLodgeGrievance, map[string]string{"message": "Grievance registered"})
	s.upstream.Respond(PathStatusCheck, map[string]any{"Responce": "False", "message": "none"})

	raw, err := s.client.LodgeGrievance(context.Background(), models.NewCreateGrievanceRequest("Reg_No_Details", "PMK_TEST", "R", "C", "description"))
	s.Require().NoError(err)
	s.JSONEq(`{"message":"Grievance registered"}`, string(raw))

	raw, err = s.client.StatusCheck(context.Background(), models.NewStatusRequest("Reg_No_Status", "PMK_TEST", "R"))
	s.Require().NoError(err)
	s.JSONEq(`{"Responce":"False","message":"none"}`, string(raw))
}

func (s *ClientSuite) TestNon200IsServiceUnavailable() {
	s.upstream.Fail(PathLodgeGrievance, http.StatusInternalServerError)

	_, err := s.client.LodgeGrievance(context.Background(), models.CreateGrievanceRequest{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTransport))

	var unavailable *ServiceUnavailableError
	s.Require().True(errors.As(err, &unavailable))
	s.Equal(http.StatusInternalServerError, unavailable.Status)
	s.Contains(dErrors.MessageOf(err), "HTTP 500")
	s.Len(s.upstream.Requests(), 1, "no retries by default")
	s.Equal(1.0, promtest.ToFloat64(s.metrics.UpstreamRequests.WithLabelValues(PathLodgeGrievance, "transport")))
}

func (s *ClientSuite) TestInvalidEnvelope() {
	s.upstream.Handle(PathStatusCheck, func(grievancetest.Request) grievancetest.Reply {
		return grievancetest.Reply{Raw: `{"result":"ok"}`}
	})

	_, err := s.client.StatusCheck(context.Background(), models.StatusRequest{})
	s.ErrorIs(err, envelope.ErrInvalid)
	s.True(dErrors.HasCode(err, dErrors.CodeProtocol))
}

func (s *ClientSuite) TestUndecryptableOutput() {
	s.upstream.Handle(PathStatusCheck, func(grievancetest.Request) grievancetest.Reply {
		return grievancetest.Reply{Raw: `{"d":{"__type":"t","output":"AAAAAAAAAAAAAAAAAAAAAAAAAAAA"}}`}
	})

	_, err := s.client.StatusCheck(context.Background(), models.StatusRequest{})
	s.ErrorIs(err, aead.ErrCrypto)
	s.True(dErrors.HasCode(err, dErrors.CodeProtocol))
}

func (s *ClientSuite) TestTypedSchemaMismatch() {
	s.upstream.Respond(PathAadhaarToken, map[string]string{"AadhaarToken": "tok"})

	_, err := s.client.AadhaarToken(context.Background(), "123456789012")
	s.ErrorIs(err, aead.ErrDecode)
	s.True(dErrors.HasCode(err, dErrors.CodeProtocol))
}

func (s *ClientSuite) TestReadTimeout() {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	c := s.newClient(Config{BaseURL: slow.URL, Token: "t", ReadTimeout: 50 * time.Millisecond})
	_, err := c.StatusCheck(context.Background(), models.StatusRequest{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout), "got %v", err)
	s.True(dErrors.IsRetryable(err))
}

func (s *ClientSuite) TestStalledBodyIsTimeout() {
	stalled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"d":{"__type":"x",`))
		w.(http.Flusher).Flush()
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer stalled.Close()

	c := s.newClient(Config{BaseURL: stalled.URL, Token: "t", ReadTimeout: 100 * time.Millisecond})
	start := time.Now()
	_, err := c.StatusCheck(context.Background(), models.StatusRequest{})
	elapsed := time.Since(start)

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout), "got %v", err)
	s.Less(elapsed, time.Second, "body read must honour the read timeout")
}

func (s *ClientSuite) TestCallerCancellationDoesNotAbortCall() {
	s.upstream.Handle(PathStatusCheck, func(grievancetest.Request) grievancetest.Reply {
		time.Sleep(300 * time.Millisecond)
		return grievancetest.Reply{Payload: map[string]string{"Responce": "True", "message": "done"}}
	})
	ctx, cancel := context.WithCancel(requestcontext.WithRequestID(context.Background(), "req-cancel"))
	time.AfterFunc(50*time.Millisecond, cancel)
	defer cancel()

	raw, err := s.client.StatusCheck(ctx, models.StatusRequest{})
	s.Require().NoError(err)
	s.JSONEq(`{"Responce":"True","message":"done"}`, string(raw))
	s.ErrorIs(ctx.Err(), context.Canceled)

	reqs := s.upstream.Requests()
	s.Require().Len(reqs, 1)
	s.Equal("req-cancel", reqs[0].Header.Get("X-Request-ID"))
}

func (s *ClientSuite) TestLogsPathNotBaseURL() {
	s.upstream.Respond(PathStatusCheck, map[string]string{"Responce": "True"})

	_, err := s.client.StatusCheck(context.Background(), models.StatusRequest{})
	s.Require().NoError(err)
	s.Contains(s.logs.String(), `"path":"/GrievanceStatusCheck"`)
	s.NotContains(s.logs.String(), s.upstream.URL)
}

func (s *ClientSuite) TestConnectionRefused() {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	c := s.newClient(Config{BaseURL: url, Token: "t"})
	_, err := c.StatusCheck(context.Background(), models.StatusRequest{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTransport), "got %v", err)
}

func (s *ClientSuite) TestBreakerStopsCallsAfterFailures() {
	s.upstream.Fail(PathStatusCheck, http.StatusBadGateway)
	breaker := circuit.New("grievance", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	c, err := New(Config{BaseURL: s.upstream.URL, Token: "t"}, s.upstream.Crypto,
		WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil))),
		WithMetrics(s.metrics),
		WithBreaker(breaker),
	)
	s.Require().NoError(err)

	for range 2 {
		_, err = c.StatusCheck(context.Background(), models.StatusRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeTransport))
	}
	s.True(breaker.IsOpen())
	s.Contains(s.logs.String(), "grievance circuit opened")

	_, err = c.StatusCheck(context.Background(), models.StatusRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeTransport))
	s.Len(s.upstream.Requests(), 2, "open circuit does not reach the service")
	s.Equal(1.0, promtest.ToFloat64(s.metrics.UpstreamRequests.WithLabelValues(PathStatusCheck, "circuit_open")))
}

func (s *ClientSuite) TestBreakerIgnoresProtocolErrors() {
	s.upstream.Handle(PathStatusCheck, func(grievancetest.Request) grievancetest.Reply {
		return grievancetest.Reply{Raw: `{"result":"ok"}`}
	})
	breaker := circuit.New("grievance", circuit.WithFailureThreshold(1))
	c, err := New(Config{BaseURL: s.upstream.URL, Token: "t"}, s.upstream.Crypto, WithBreaker(breaker))
	s.Require().NoError(err)

	_, err = c.StatusCheck(context.Background(), models.StatusRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeProtocol))
	s.False(breaker.IsOpen())
}
