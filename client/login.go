package client

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/luma/amictl/protocol"
)

// Digest is the key for an MD5 challenge login: the hex MD5 of the challenge
// followed by the secret.
func Digest(challenge, secret string) string {
	sum := md5.Sum([]byte(challenge + secret))
	return hex.EncodeToString(sum[:])
}

// Login authenticates the session, moving it from Connected to Authenticated.
//
// An MD5 challenge is requested first. If the manager issues one, the secret
// never crosses the wire and a digest is sent instead; otherwise it falls back
// to a plaintext login. eventMask, if not empty, sets which event classes the
// manager sends (e.g. "on", "off" or "call,system").
func (c *Conn) Login(ctx context.Context, username, secret, eventMask string) error {
	if username == "" || secret == "" {
		return fmt.Errorf("%w: username and secret are required", ErrPrecondition)
	}

	if state := c.State(); state != Connected {
		return fmt.Errorf("%w: cannot login while %s", ErrPrecondition, state)
	}

	log := c.log.With(zap.String("username", username))

	login, err := c.loginAction(ctx, username, secret)
	if err != nil {
		return err
	}

	if eventMask != "" {
		login.SetEvents(eventMask)
	}

	resp, err := c.SyncSendAction(ctx, login, 0)
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		log.Warn("Login rejected", zap.String("message", resp.Message()))
		return fmt.Errorf("%w: %s", ErrLoginFailed, resp.Message())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Connected {
		// disconnected while waiting for the response
		return fmt.Errorf("%w: connection was lost", ErrLoginFailed)
	}

	return c.setStateLocked(Authenticated)
}

// loginAction builds a digest login if the manager issues an MD5 challenge,
// and a plaintext one if it refuses to.
func (c *Conn) loginAction(ctx context.Context, username, secret string) (*protocol.LoginAction, error) {
	resp, err := c.SyncSendAction(ctx, protocol.NewChallengeAction(protocol.AuthTypeMD5), 0)
	if err != nil {
		return nil, err
	}

	challenge := protocol.ChallengeResponse{Response: resp}.Challenge()
	if !resp.IsSuccess() || challenge == "" {
		c.log.Info("No challenge issued, using plaintext login", zap.String("message", resp.Message()))
		return protocol.NewLoginAction(username, secret), nil
	}

	return protocol.NewDigestLoginAction(username, protocol.AuthTypeMD5, Digest(challenge, secret)), nil
}

// Logoff ends the authenticated session, moving it back to Connected. The
// manager answers with Goodbye, which is accepted alongside Success.
func (c *Conn) Logoff(ctx context.Context) error {
	if state := c.State(); state != Authenticated {
		return fmt.Errorf("%w: cannot logoff while %s", ErrPrecondition, state)
	}

	resp, err := c.SyncSendAction(ctx, protocol.NewLogoffAction(), 0)
	if err != nil {
		return err
	}

	if resp.Type != protocol.RespSuccess && resp.Type != protocol.RespGoodbye {
		return fmt.Errorf("%w: %s", ErrLogoffFailed, resp.Message())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Authenticated {
		return nil
	}

	return c.setStateLocked(Connected)
}
