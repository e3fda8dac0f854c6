package tableau

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signInBody = `{
	"credentials": {
		"token": "session-token-abc",
		"site": {"id": "site-uuid-1", "contentUrl": "testsite"},
		"user": {"id": "user-uuid-1"}
	}
}`

// authServer tracks sign-in and sign-out calls and serves everything else
// through next.
type authServer struct {
	signIns  int
	signOuts int
	next     http.HandlerFunc
}

func (a *authServer) handler(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/" + defaultAPIVersion + "/auth/signin":
			a.signIns++

			var req signInRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "ci-token", req.Credentials.TokenName)
			assert.Equal(t, "s3cret", req.Credentials.TokenSecret)
			assert.Equal(t, "testsite", req.Credentials.Site.ContentURL)

			_, _ = w.Write([]byte(signInBody))
		case "/api/" + defaultAPIVersion + "/auth/signout":
			a.signOuts++

			assert.Equal(t, "session-token-abc", r.Header.Get("X-Tableau-Auth"))
			w.WriteHeader(http.StatusNoContent)
		default:
			if a.next != nil {
				a.next(w, r)
				return
			}

			http.NotFound(w, r)
		}
	}
}

func testCreds() Credentials {
	return Credentials{Site: "testsite", TokenName: "ci-token", TokenSecret: "s3cret"}
}

func TestSignIn_Success(t *testing.T) {
	auth := &authServer{}
	srv := httptest.NewServer(auth.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	session, err := c.SignIn(context.Background(), testCreds())
	require.NoError(t, err)
	assert.Equal(t, "session-token-abc", session.token)
	assert.Equal(t, "site-uuid-1", session.siteID)
	assert.Equal(t, 1, auth.signIns)
}

func TestSignIn_RejectedCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"summary":"Login error","detail":"invalid token","code":"401001"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.SignIn(context.Background(), testCreds())
	require.ErrorIs(t, err, ErrAuth)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "401001", apiErr.Code)
}

func TestSignIn_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.SignIn(context.Background(), testCreds())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestSignOut_Idempotent(t *testing.T) {
	auth := &authServer{}
	srv := httptest.NewServer(auth.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	session, err := c.SignIn(context.Background(), testCreds())
	require.NoError(t, err)

	require.NoError(t, session.SignOut(context.Background()))
	require.NoError(t, session.SignOut(context.Background()))
	assert.Equal(t, 1, auth.signOuts, "only the first SignOut hits the server")
}

func TestWithSession_SignsOutOnSuccess(t *testing.T) {
	auth := &authServer{}
	srv := httptest.NewServer(auth.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.WithSession(context.Background(), testCreds(), func(_ context.Context, s *Session) error {
		assert.Equal(t, "session-token-abc", s.token)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, auth.signIns)
	assert.Equal(t, 1, auth.signOuts)
}

func TestWithSession_SignsOutExactlyOnceOnError(t *testing.T) {
	// Every failure injection point downstream of sign-in must still
	// release the session exactly once.
	injected := errors.New("downstream failure")

	for _, name := range []string{"resolution", "trigger", "polling"} {
		t.Run(name, func(t *testing.T) {
			auth := &authServer{}
			srv := httptest.NewServer(auth.handler(t))
			defer srv.Close()

			c := newTestClient(t, srv.URL)

			err := c.WithSession(context.Background(), testCreds(), func(_ context.Context, _ *Session) error {
				return injected
			})
			require.ErrorIs(t, err, injected)
			assert.Equal(t, 1, auth.signIns)
			assert.Equal(t, 1, auth.signOuts)
		})
	}
}

func TestWithSession_NoSignOutWhenSignInFails(t *testing.T) {
	var signOuts int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/"+defaultAPIVersion+"/auth/signout" {
			signOuts++
		}

		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"summary":"Login error","detail":"bad","code":"401001"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.WithSession(context.Background(), testCreds(), func(_ context.Context, _ *Session) error {
		t.Fatal("fn must not run when sign-in fails")
		return nil
	})
	require.ErrorIs(t, err, ErrAuth)
	assert.Zero(t, signOuts)
}

func TestWithSession_FnErrorWinsOverSignOutError(t *testing.T) {
	injected := errors.New("downstream failure")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/" + defaultAPIVersion + "/auth/signin":
			_, _ = w.Write([]byte(signInBody))
		default:
			// Sign-out fails.
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"summary":"oops","detail":"","code":"500000"}}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.WithSession(context.Background(), testCreds(), func(_ context.Context, _ *Session) error {
		return injected
	})
	assert.ErrorIs(t, err, injected)
}
