package imap

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"github.com/pkg/errors"

	"git.sr.ht/~rjarry/mailthread/lib/log"
)

// connect establishes a new tcp connection to the imap server and logs in.
// If no error is returned, the imap client is in the authenticated state.
func connect(cfg *imapConfig) (*client.Client, error) {
	var (
		conn *net.TCPConn
		err  error
		c    *client.Client
	)

	conn, err = newTCPConn(cfg.addr, cfg.connection_timeout)
	if conn == nil || err != nil {
		return nil, errors.Wrap(err, cfg.addr)
	}

	serverName, _, _ := net.SplitHostPort(cfg.addr)
	tlsConfig := &tls.Config{ServerName: serverName}

	switch cfg.scheme {
	case "imap":
		c, err = client.New(conn)
		if err != nil {
			return nil, errors.Wrap(err, "client.New")
		}
		if !cfg.insecure {
			if err = c.StartTLS(tlsConfig); err != nil {
				return nil, errors.Wrap(err, "StartTLS")
			}
		}
	case "imaps":
		tlsConn := tls.Client(conn, tlsConfig)
		c, err = client.New(tlsConn)
		if err != nil {
			return nil, errors.Wrap(err, "client.New")
		}
	default:
		return nil, fmt.Errorf("unknown IMAP scheme %s", cfg.scheme)
	}

	c.ErrorLog = log.ErrorLogger()
	if cfg.connection_timeout > 0 {
		c.Timeout = cfg.connection_timeout
	}

	if err := authenticate(c, cfg); err != nil {
		_ = c.Logout()
		return nil, err
	}
	return c, nil
}

func authenticate(c *client.Client, cfg *imapConfig) error {
	if cfg.user == nil {
		return nil
	}
	username := cfg.user.Username()
	password, _ := cfg.user.Password()

	switch cfg.auth {
	case "oauthbearer", "xoauth2":
		mech := sasl.OAuthBearer
		if cfg.auth == "xoauth2" {
			mech = xoauth2Mech
		}
		if ok, err := c.SupportAuth(mech); err != nil || !ok {
			return fmt.Errorf("%s: %s not supported", cfg.addr, mech)
		}
		saslClient, err := oauthClient(cfg, username, password)
		if err != nil {
			return errors.Wrap(err, "oauth2")
		}
		return errors.Wrap(c.Authenticate(saslClient), "AUTHENTICATE "+mech)
	case "plain":
		if ok, err := c.SupportAuth(sasl.Plain); err == nil && ok {
			saslClient := sasl.NewPlainClient("", username, password)
			return errors.Wrap(c.Authenticate(saslClient), "AUTHENTICATE PLAIN")
		}
		log.Debugf("%s: no SASL PLAIN support, using LOGIN", cfg.addr)
	}
	return errors.Wrap(c.Login(username, password), "LOGIN")
}

// newTCPConn establishes a new tcp connection. Timeout will ensure that the
// function does not hang when there is no connection. If there is a timeout,
// but a valid connection is eventually returned, ensure that it is properly
// closed. A zero timeout waits forever.
func newTCPConn(addr string, timeout time.Duration) (*net.TCPConn, error) {
	errTCPTimeout := fmt.Errorf("tcp connection timeout")

	type tcpConn struct {
		conn *net.TCPConn
		err  error
	}

	done := make(chan tcpConn)
	go func() {
		defer log.PanicHandler()
		addr, err := net.ResolveTCPAddr("tcp", addr)
		if err != nil {
			done <- tcpConn{nil, err}
			return
		}

		newConn, err := net.DialTCP("tcp", nil, addr)
		if err != nil {
			done <- tcpConn{nil, err}
			return
		}

		done <- tcpConn{newConn, nil}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		expired = time.After(timeout)
	}
	select {
	case <-expired:
		go func() {
			defer log.PanicHandler()
			if tcpResult := <-done; tcpResult.conn != nil {
				tcpResult.conn.Close()
			}
		}()
		return nil, errTCPTimeout
	case tcpResult := <-done:
		if tcpResult.conn == nil || tcpResult.err != nil {
			return nil, tcpResult.err
		}
		return tcpResult.conn, nil
	}
}
