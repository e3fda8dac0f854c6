// Package connstr decodes the URI-shaped connection descriptor supplied
// by an external secret store into the four fields a Tableau PAT session
// needs. It is a pure parser — how the string is stored or retrieved is
// the secret store's business.
//
// Descriptor format:
//
//	tableau://host[:port]?site_id=SITE&token_name=NAME&token_secret=SECRET
//
// The tableau scheme implies https. Plain http and https schemes are also
// accepted for direct URLs.
package connstr

import (
	"fmt"
	"net/url"
)

// Descriptor is the decoded connection descriptor. Immutable for the
// lifetime of one invocation.
type Descriptor struct {
	ServerURL   string // scheme + host[:port]
	Site        string // site content URL; empty means the default site
	TokenName   string
	TokenSecret string
}

// Redacted returns a copy safe for logging, with the token secret blanked.
func (d Descriptor) Redacted() Descriptor {
	d.TokenSecret = "***"
	return d
}

// Parse decodes a connection descriptor URI.
func Parse(raw string) (Descriptor, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Descriptor{}, fmt.Errorf("connstr: parsing descriptor: %w", err)
	}

	var scheme string

	switch u.Scheme {
	case "tableau", "https":
		scheme = "https"
	case "http":
		scheme = "http"
	default:
		return Descriptor{}, fmt.Errorf("connstr: unsupported scheme %q (want tableau, https, or http)", u.Scheme)
	}

	if u.Host == "" {
		return Descriptor{}, fmt.Errorf("connstr: descriptor has no host")
	}

	q := u.Query()

	d := Descriptor{
		ServerURL:   scheme + "://" + u.Host,
		Site:        q.Get("site_id"),
		TokenName:   q.Get("token_name"),
		TokenSecret: q.Get("token_secret"),
	}

	if d.TokenName == "" {
		return Descriptor{}, fmt.Errorf("connstr: descriptor missing token_name")
	}

	if d.TokenSecret == "" {
		return Descriptor{}, fmt.Errorf("connstr: descriptor missing token_secret")
	}

	return d, nil
}
