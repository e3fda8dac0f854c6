package tableau

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// signInRequest mirrors the REST API sign-in payload for PAT auth.
type signInRequest struct {
	Credentials signInCredentials `json:"credentials"`
}

type signInCredentials struct {
	TokenName   string  `json:"personalAccessTokenName"`
	TokenSecret string  `json:"personalAccessTokenSecret"`
	Site        siteRef `json:"site"`
}

type siteRef struct {
	ContentURL string `json:"contentUrl"`
}

// signInResponse mirrors the REST API sign-in response.
type signInResponse struct {
	Credentials struct {
		Token string `json:"token"`
		Site  struct {
			ID         string `json:"id"`
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"credentials"`
}

// Session is an authenticated handle bound to one site. It is owned by the
// invocation that created it and never shared across concurrent refreshes.
// SignOut must be called exactly once; WithSession takes care of that.
type Session struct {
	client *Client
	token  string
	siteID string
	site   string // contentUrl, for messages

	signedOut bool
}

// SignIn opens a PAT session on the site named in creds. A rejected token
// or unreachable host returns ErrAuth immediately — there is no retry at
// this layer.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	c.logger.Info("signing in",
		slog.String("server", c.baseURL),
		slog.String("site", creds.Site),
		slog.String("token_name", creds.TokenName),
	)

	payload := signInRequest{
		Credentials: signInCredentials{
			TokenName:   creds.TokenName,
			TokenSecret: creds.TokenSecret,
			Site:        siteRef{ContentURL: creds.Site},
		},
	}

	body, err := c.do(ctx, http.MethodPost, "/auth/signin", "", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: sign in to %s: %w", ErrAuth, c.baseURL, err)
	}

	var resp signInResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing sign-in response: %w", ErrAuth, err)
	}

	if resp.Credentials.Token == "" || resp.Credentials.Site.ID == "" {
		return nil, fmt.Errorf("%w: sign-in response missing token or site id", ErrAuth)
	}

	c.logger.Debug("signed in", slog.String("site_id", resp.Credentials.Site.ID))

	return &Session{
		client: c,
		token:  resp.Credentials.Token,
		siteID: resp.Credentials.Site.ID,
		site:   resp.Credentials.Site.ContentURL,
	}, nil
}

// SignOut invalidates the session token. Safe to call more than once —
// only the first call hits the server.
func (s *Session) SignOut(ctx context.Context) error {
	if s.signedOut {
		return nil
	}

	s.signedOut = true

	if _, err := s.client.do(ctx, http.MethodPost, "/auth/signout", s.token, nil); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}

	s.client.logger.Debug("signed out", slog.String("site_id", s.siteID))

	return nil
}

// WithSession runs fn inside a scoped session: sign in, invoke, sign out.
// The sign-out runs on every exit path. When fn itself fails, a sign-out
// failure is logged but fn's error is what propagates — the root cause
// must not be masked by cleanup.
func (c *Client) WithSession(ctx context.Context, creds Credentials, fn func(ctx context.Context, s *Session) error) error {
	session, err := c.SignIn(ctx, creds)
	if err != nil {
		return err
	}

	fnErr := fn(ctx, session)

	if err := session.SignOut(ctx); err != nil {
		if fnErr != nil {
			c.logger.Warn("sign-out failed after error", slog.String("error", err.Error()))
			return fnErr
		}

		return err
	}

	return fnErr
}

// sitePath prefixes a path with the signed-in site scope.
func (s *Session) sitePath(suffix string) string {
	return fmt.Sprintf("/sites/%s%s", s.siteID, suffix)
}
