package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compliai/compliai/internal/application"
	appassess "github.com/compliai/compliai/internal/application/assessments"
	appident "github.com/compliai/compliai/internal/application/identity"
	"github.com/compliai/compliai/internal/domain/compliance"
	"github.com/compliai/compliai/internal/infra/db/memory"
	mw "github.com/compliai/compliai/internal/middleware"
)

const backendJSON = `{"score":72,"issues":[{"severity":"high","description":"Missing explicit user consent for data collection","recommendation":"Add clear consent mechanisms before collecting user data"}],"summary":"Consent gap found."}`

type stubScorer struct {
	response string
	err      error
}

func (s *stubScorer) Score(ctx context.Context, req compliance.ScoreRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestServer(t *testing.T, scorer compliance.Scorer) *httptest.Server {
	return newTestServerWithConfig(t, scorer, Config{})
}

func newTestServerWithConfig(t *testing.T, scorer compliance.Scorer, cfg Config) *httptest.Server {
	t.Helper()
	clock := application.SystemClock{}
	users := memory.NewUserRepository()
	creds := memory.NewCredentialRepository()

	ident := &appident.Service{
		Users:    users,
		Secret:   []byte("test-secret"),
		TokenTTL: time.Hour,
		ResetTTL: 15 * time.Minute,
		Clock:    clock,
	}
	assess := appassess.NewService(scorer, creds, nil, clock, 20*time.Millisecond)

	srv := httptest.NewServer(NewRouter(ident, creds, assess, clock, cfg))
	t.Cleanup(srv.Close)
	return srv
}

// doJSON issues a request and decodes the JSON response into a generic map.
// The body return is nil for empty responses.
func doJSON(t *testing.T, method, url, token string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) == 0 {
		return resp.StatusCode, nil
	}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	return resp.StatusCode, decoded
}

func signUp(t *testing.T, base, email string) string {
	t.Helper()
	status, body := doJSON(t, http.MethodPost, base+"/v1/auth/signup", "", map[string]string{
		"email":    email,
		"password": "Sup3rSecret",
	})
	require.Equal(t, http.StatusCreated, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestFullAssessmentFlow(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})
	token := signUp(t, srv.URL, "analyst@example.com")

	status, _ := doJSON(t, http.MethodPut, srv.URL+"/v1/credentials/openrouter", token, map[string]string{"key": "sk-or-test"})
	require.Equal(t, http.StatusOK, status)

	status, sess := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", token, map[string]string{"mode": "manual"})
	require.Equal(t, http.StatusCreated, status)
	id, _ := sess["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "idle", sess["state"])

	status, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/regulations/gdpr", srv.URL, id), token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, http.MethodPut, fmt.Sprintf("%s/v1/sessions/%s/document", srv.URL, id), token, map[string]string{
		"text": "We collect emails without consent.",
	})
	require.Equal(t, http.StatusOK, status)

	status, snap := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/analyze", srv.URL, id), token, nil)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "checking", snap["state"])

	require.Eventually(t, func() bool {
		_, cur := doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s", srv.URL, id), token, nil)
		return cur["state"] == "succeeded"
	}, 2*time.Second, 10*time.Millisecond)

	_, cur := doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s", srv.URL, id), token, nil)
	report, ok := cur["report"].(map[string]any)
	require.True(t, ok, "succeeded session must carry a report")
	assert.Equal(t, float64(72), report["score"])
	assert.Equal(t, true, report["passing"])

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s/export", srv.URL, id), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "compliance-report-")

	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Compliance Score: 72%")
	assert.Contains(t, string(text), "GDPR")
	assert.Contains(t, string(text), "Severity: HIGH")
}

func TestRequiresAuthentication(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})

	// rejections carry the same JSON error envelope as handler errors
	status, body := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.NotEmpty(t, body["error"])

	status, body = doJSON(t, http.MethodGet, srv.URL+"/v1/credentials/openrouter", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.NotEmpty(t, body["error"])
}

func TestRateLimitBucketsArePerUser(t *testing.T) {
	srv := newTestServerWithConfig(t, &stubScorer{response: backendJSON}, Config{
		RateLimit: mw.NewRateLimiter(0.01, 2),
	})

	// both signups go through the address-keyed public bucket (burst 2)
	alpha := signUp(t, srv.URL, "alpha@example.com")
	beta := signUp(t, srv.URL, "beta@example.com")

	// alpha exhausts their own bucket
	status, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", alpha, nil)
	require.Equal(t, http.StatusCreated, status)
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", alpha, nil)
	require.Equal(t, http.StatusCreated, status)
	status, body := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", alpha, nil)
	require.Equal(t, http.StatusTooManyRequests, status)
	assert.NotEmpty(t, body["error"])

	// beta shares alpha's address but not alpha's bucket
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", beta, nil)
	assert.Equal(t, http.StatusCreated, status)
}

func TestSignUpRejectsWeakPassword(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})

	status, body := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/signup", "", map[string]string{
		"email":    "weak@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "at least 8 characters")
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})
	signUp(t, srv.URL, "dup@example.com")

	status, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/signup", "", map[string]string{
		"email":    "dup@example.com",
		"password": "Sup3rSecret",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestAnalyzeGuardsReturn400(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})
	token := signUp(t, srv.URL, "guards@example.com")

	_, sess := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", token, nil)
	id := sess["id"].(string)

	// empty document
	status, _ := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/analyze", srv.URL, id), token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// document but no regulations
	doJSON(t, http.MethodPut, fmt.Sprintf("%s/v1/sessions/%s/document", srv.URL, id), token, map[string]string{"text": "policy"})
	status, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/analyze", srv.URL, id), token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// regulations but no stored credential
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/regulations/hipaa", srv.URL, id), token, nil)
	status, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/analyze", srv.URL, id), token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "credential")
}

func TestUnknownRegulationRejected(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})
	token := signUp(t, srv.URL, "regs@example.com")

	_, sess := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", token, nil)
	id := sess["id"].(string)

	status, _ := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/regulations/sox", srv.URL, id), token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestExportWithoutReportConflicts(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})
	token := signUp(t, srv.URL, "export@example.com")

	_, sess := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", token, nil)
	id := sess["id"].(string)

	status, _ := doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s/export", srv.URL, id), token, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestSessionsAreOwnerScoped(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})
	owner := signUp(t, srv.URL, "owner@example.com")
	other := signUp(t, srv.URL, "other@example.com")

	_, sess := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", owner, nil)
	id := sess["id"].(string)

	status, _ := doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s", srv.URL, id), other, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestScoringFailureMapsToBadGateway(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: "the system is mostly compliant"})
	token := signUp(t, srv.URL, "parsefail@example.com")

	doJSON(t, http.MethodPut, srv.URL+"/v1/credentials/openrouter", token, map[string]string{"key": "sk-or-test"})
	_, sess := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", token, nil)
	id := sess["id"].(string)
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/regulations/gdpr", srv.URL, id), token, nil)
	doJSON(t, http.MethodPut, fmt.Sprintf("%s/v1/sessions/%s/document", srv.URL, id), token, map[string]string{"text": "policy"})

	status, _ := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/analyze", srv.URL, id), token, nil)
	require.Equal(t, http.StatusAccepted, status)

	require.Eventually(t, func() bool {
		_, cur := doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s", srv.URL, id), token, nil)
		return cur["state"] == "failed"
	}, 2*time.Second, 10*time.Millisecond)

	_, cur := doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s", srv.URL, id), token, nil)
	assert.Equal(t, "analysis failed, please retry", cur["message"])
	assert.Nil(t, cur["report"])
}

func TestCredentialIsNeverEchoed(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})
	token := signUp(t, srv.URL, "secret@example.com")

	status, body := doJSON(t, http.MethodPut, srv.URL+"/v1/credentials/openrouter", token, map[string]string{"key": "sk-or-secret"})
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, fmt.Sprint(body), "sk-or-secret")

	status, body = doJSON(t, http.MethodGet, srv.URL+"/v1/credentials/openrouter", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["configured"])
	assert.NotContains(t, fmt.Sprint(body), "sk-or-secret")
}

func TestPasswordResetFlow(t *testing.T) {
	srv := newTestServer(t, &stubScorer{response: backendJSON})
	signUp(t, srv.URL, "reset@example.com")

	status, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/password-reset", "", map[string]string{"email": "reset@example.com"})
	assert.Equal(t, http.StatusAccepted, status)

	// unknown addresses get the same answer
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/password-reset", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, status)
}
