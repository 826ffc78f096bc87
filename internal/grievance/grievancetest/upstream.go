// Package grievancetest provides a fake grievance service for tests. It
// decrypts every request with the shared envelope and answers with sealed
// service envelopes, so tests exercise the real wire format end to end.
package grievancetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pmkisan/internal/grievance/aead"
	"pmkisan/internal/grievance/envelope"
)

const (
	KeyHex   = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	IVHex    = "a0a1a2a3a4a5a6a7a8a9aaab"
	Token    = "PMK_TEST"
	TypeName = "PMKisan.Grievance.Response"
)

// Request is one decrypted call received by the fake.
type Request struct {
	Path    string
	Header  http.Header
	Wrapper aead.Wrapper
	Body    map[string]any
}

// Reply is what a route answers. Status defaults to 200. When Raw is set it
// is written verbatim; otherwise Payload is sealed into a service envelope.
type Reply struct {
	Status  int
	Payload any
	Raw     string
}

// Upstream is a fake grievance service.
type Upstream struct {
	*httptest.Server
	Crypto *aead.Envelope

	t        *testing.T
	mu       sync.Mutex
	routes   map[string]func(Request) Reply
	requests []Request
}

// Envelope returns the crypto envelope shared by all fakes.
func Envelope(t *testing.T) *aead.Envelope {
	t.Helper()
	crypto, err := aead.FromHex(KeyHex, IVHex)
	require.NoError(t, err)
	return crypto
}

// NewUpstream starts a fake service; it is closed when the test ends.
func NewUpstream(t *testing.T) *Upstream {
	t.Helper()
	u := &Upstream{
		Crypto: Envelope(t),
		t:      t,
		routes: map[string]func(Request) Reply{},
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)
	return u
}

// Handle registers a dynamic route.
func (u *Upstream) Handle(path string, fn func(Request) Reply) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[path] = fn
}

// Respond registers a route that always answers with payload.
func (u *Upstream) Respond(path string, payload any) {
	u.Handle(path, func(Request) Reply { return Reply{Payload: payload} })
}

// Fail registers a route that answers with a bare HTTP status.
func (u *Upstream) Fail(path string, status int) {
	u.Handle(path, func(Request) Reply { return Reply{Status: status, Raw: `{"error":"upstream"}`} })
}

// Requests returns the decrypted requests received so far.
func (u *Upstream) Requests() []Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Request(nil), u.requests...)
}

// Paths returns the paths hit so far, in order.
func (u *Upstream) Paths() []string {
	var paths []string
	for _, r := range u.Requests() {
		paths = append(paths, r.Path)
	}
	return paths
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := Request{Path: r.URL.Path, Header: r.Header.Clone()}
	if err := json.Unmarshal(raw, &req.Wrapper); err != nil {
		http.Error(w, "bad wrapper", http.StatusBadRequest)
		return
	}
	if err := u.Crypto.DecryptInto(req.Wrapper.EncryptedRequest, &req.Body); err != nil {
		http.Error(w, "bad ciphertext", http.StatusBadRequest)
		return
	}

	u.mu.Lock()
	u.requests = append(u.requests, req)
	route, ok := u.routes[r.URL.Path]
	u.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	reply := route(req)
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if reply.Raw != "" {
		_, _ = io.WriteString(w, reply.Raw)
		return
	}
	_, _ = w.Write(u.Seal(reply.Payload))
}

// Seal builds a service envelope around payload.
func (u *Upstream) Seal(payload any) []byte {
	wrapped, err := u.Crypto.Encrypt(payload)
	require.NoError(u.t, err)
	body, err := json.Marshal(envelope.ServiceEnvelope{
		D: envelope.Data{Type: TypeName, Output: wrapped.EncryptedRequest},
	})
	require.NoError(u.t, err)
	return body
}
