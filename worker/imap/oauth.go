package imap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/emersion/go-sasl"
	"golang.org/x/oauth2"

	"git.sr.ht/~rjarry/mailthread/lib/xdg"
)

const xoauth2Mech = "XOAUTH2"

// An XOAUTH2 error.
type xoauth2Error struct {
	Status  string `json:"status"`
	Schemes string `json:"schemes"`
	Scope   string `json:"scope"`
}

func (err *xoauth2Error) Error() string {
	return fmt.Sprintf("XOAUTH2 authentication error (%v)", err.Status)
}

type xoauth2Client struct {
	username string
	token    string
}

func (a *xoauth2Client) Start() (mech string, ir []byte, err error) {
	mech = xoauth2Mech
	ir = []byte("user=" + a.username + "\x01auth=Bearer " + a.token + "\x01\x01")
	return
}

// Next is only called when the server rejects the token. The challenge
// holds a JSON error.
func (a *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	xoauth2Err := &xoauth2Error{}
	if err := json.Unmarshal(challenge, xoauth2Err); err != nil {
		return nil, err
	}
	return nil, xoauth2Err
}

// newXoauth2Client implements the mechanism described in
// https://developers.google.com/gmail/xoauth2_protocol.
func newXoauth2Client(username, token string) sasl.Client {
	return &xoauth2Client{username: username, token: token}
}

// oauthClient returns the SASL client for the oauthbearer and xoauth2 auth
// methods. The password is exchanged for an access token first when a
// token endpoint is configured.
func oauthClient(cfg *imapConfig, username, password string) (sasl.Client, error) {
	token, err := accessToken(cfg, password)
	if err != nil {
		return nil, err
	}
	if cfg.auth == "xoauth2" {
		return newXoauth2Client(username, token), nil
	}
	return sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: username,
		Token:    token,
	}), nil
}

func tokenCachePath(cfg *imapConfig) string {
	name := url.PathEscape(cfg.user.Username()) + "@" + cfg.addr + "-" + cfg.auth
	return xdg.CachePath("mailthread", "tokens", name+".token")
}

func saveRefreshToken(cfg *imapConfig, refreshToken string) error {
	p := tokenCachePath(cfg)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(refreshToken), 0o600)
}

func getRefreshToken(cfg *imapConfig) (string, error) {
	buf, err := os.ReadFile(tokenCachePath(cfg))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// accessToken exchanges a refresh token for an access token. The refresh
// token returned by the endpoint is cached and preferred over password on
// the next call.
func accessToken(cfg *imapConfig, password string) (string, error) {
	if cfg.oauth2 == nil || cfg.oauth2.Endpoint.TokenURL == "" {
		return password, nil
	}
	usedCache := false
	if r, err := getRefreshToken(cfg); err == nil && len(r) > 0 {
		password = r
		usedCache = true
	}

	ctx := context.Background()
	if cfg.connection_timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.connection_timeout)
		defer cancel()
	}
	token := &oauth2.Token{RefreshToken: password, TokenType: "Bearer"}
	token, err := cfg.oauth2.TokenSource(ctx, token).Token()
	if err != nil {
		if usedCache {
			return "", fmt.Errorf("%w: try deleting %s", err, tokenCachePath(cfg))
		}
		return "", err
	}
	if err := saveRefreshToken(cfg, token.RefreshToken); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}
