package imap

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"golang.org/x/oauth2"
)

type imapConfig struct {
	scheme   string
	insecure bool
	addr     string
	user     *url.Userinfo
	mailbox  string
	// plain uses SASL PLAIN when the server offers it, login always uses
	// the LOGIN command, oauthbearer and xoauth2 send the password as a
	// token
	auth string
	// set when the password is a refresh token to exchange first
	oauth2             *oauth2.Config
	connection_timeout time.Duration
	fetchBatch         int
}

// parseURL reads a source URL of the form
// imap[s][+insecure][+auth]://user:pass@host[:port]/Mailbox?param=value
func parseURL(u *url.URL) (*imapConfig, error) {
	cfg := &imapConfig{
		user:               u.User,
		mailbox:            strings.Trim(u.Path, "/"),
		auth:               "plain",
		connection_timeout: 30 * time.Second,
		fetchBatch:         200,
	}
	if cfg.mailbox == "" {
		cfg.mailbox = imap.InboxName
	}

	parts := strings.Split(u.Scheme, "+")
	scheme := parts[0]
	for _, modifier := range parts[1:] {
		switch modifier {
		case "insecure":
			cfg.insecure = true
		case "plain", "login", "oauthbearer", "xoauth2":
			cfg.auth = modifier
		default:
			return nil, fmt.Errorf("unknown IMAP scheme modifier %q", modifier)
		}
	}
	cfg.scheme = scheme

	port := u.Port()
	switch scheme {
	case "imap":
		if port == "" {
			port = "143"
		}
	case "imaps":
		if port == "" {
			port = "993"
		}
	default:
		return nil, fmt.Errorf("unknown IMAP scheme %s", scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%s: missing host", u.Redacted())
	}
	cfg.addr = net.JoinHostPort(u.Hostname(), port)

	var o oauth2.Config
	for key, values := range u.Query() {
		value := values[len(values)-1]
		switch key {
		case "auth":
			switch value {
			case "plain", "login", "oauthbearer", "xoauth2":
				cfg.auth = value
			default:
				return nil, fmt.Errorf("invalid auth value %q", value)
			}
		case "token_endpoint":
			o.Endpoint.TokenURL = value
		case "client_id":
			o.ClientID = value
		case "client_secret":
			o.ClientSecret = value
		case "scope":
			o.Scopes = strings.Fields(value)
		case "connection-timeout":
			val, err := time.ParseDuration(value)
			if err != nil || val < 0 {
				return nil, fmt.Errorf(
					"invalid connection-timeout value %v: %w",
					value, err)
			}
			cfg.connection_timeout = val
		case "fetch-batch":
			val, err := strconv.Atoi(value)
			if err != nil || val <= 0 {
				return nil, fmt.Errorf(
					"invalid fetch-batch value %v: %w",
					value, err)
			}
			cfg.fetchBatch = val
		default:
			return nil, fmt.Errorf("unknown IMAP parameter %q", key)
		}
	}

	hasOAuth := o.Endpoint.TokenURL != "" || o.ClientID != "" ||
		o.ClientSecret != "" || len(o.Scopes) > 0
	switch {
	case !hasOAuth:
	case cfg.auth != "oauthbearer" && cfg.auth != "xoauth2":
		return nil, fmt.Errorf("oauth2 parameters require auth=oauthbearer or auth=xoauth2")
	case o.Endpoint.TokenURL == "":
		return nil, fmt.Errorf("oauth2 parameters require token_endpoint")
	default:
		cfg.oauth2 = &o
	}
	return cfg, nil
}
