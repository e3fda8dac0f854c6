package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tonimelisma/tableau-refresh-go/internal/connstr"
)

// Descriptor resolves a connection reference to a decoded descriptor.
// A reference containing "://" is treated as a raw descriptor URI
// (the shape the external secret store hands out); anything else is
// looked up among the named [connections.*] blocks.
func (r *Resolved) Descriptor(ref string) (connstr.Descriptor, error) {
	if ref == "" {
		return connstr.Descriptor{}, fmt.Errorf("no connection given: set --conn, %s, or defaults.connection", EnvConnection)
	}

	if strings.Contains(ref, "://") {
		return connstr.Parse(ref)
	}

	conn, ok := r.cfg.Connections[ref]
	if !ok {
		return connstr.Descriptor{}, fmt.Errorf("connection %q is not defined in the config file", ref)
	}

	secret := conn.TokenSecret
	if conn.TokenSecretEnv != "" {
		secret = os.Getenv(conn.TokenSecretEnv)
		if secret == "" {
			return connstr.Descriptor{}, fmt.Errorf("connection %q: environment variable %s is empty", ref, conn.TokenSecretEnv)
		}
	}

	return connstr.Descriptor{
		ServerURL:   strings.TrimRight(conn.ServerURL, "/"),
		Site:        conn.Site,
		TokenName:   conn.TokenName,
		TokenSecret: secret,
	}, nil
}

// ConnectionNames returns the configured connection names, sorted.
func (r *Resolved) ConnectionNames() []string {
	names := make([]string, 0, len(r.cfg.Connections))
	for name := range r.cfg.Connections {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ConnectionSummary describes one configured connection with its secret
// redacted, for `config show`.
type ConnectionSummary struct {
	Name      string `json:"name"`
	ServerURL string `json:"server_url"`
	Site      string `json:"site,omitempty"`
	TokenName string `json:"token_name"`
	Secret    string `json:"secret"` // "***" or "env:VARNAME"
}

// ConnectionSummaries returns redacted views of all configured connections.
func (r *Resolved) ConnectionSummaries() []ConnectionSummary {
	summaries := make([]ConnectionSummary, 0, len(r.cfg.Connections))

	for _, name := range r.ConnectionNames() {
		conn := r.cfg.Connections[name]

		secret := "***"
		if conn.TokenSecretEnv != "" {
			secret = "env:" + conn.TokenSecretEnv
		}

		summaries = append(summaries, ConnectionSummary{
			Name:      name,
			ServerURL: conn.ServerURL,
			Site:      conn.Site,
			TokenName: conn.TokenName,
			Secret:    secret,
		})
	}

	return summaries
}
