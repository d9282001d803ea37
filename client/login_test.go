package client_test

import (
	"context"
	"io"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/amictl/client"
	"github.com/luma/amictl/protocol"
)

var _ = Describe("Login", func() {
	var (
		manager *fakeManager
		conn    *client.Conn
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		manager = newFakeManager()
		conn = client.New(client.Options{
			ResponseTimeout: time.Second,
			PollInterval:    10 * time.Millisecond,
			Log:             zap.NewNop(),
		})
	})

	AfterEach(func() {
		conn.Close()
		manager.Close()
	})

	// receiveAction waits for the manager to read the next action named name,
	// skipping any others.
	receiveAction := func(name string) *protocol.PropertyMap {
		var action *protocol.PropertyMap

		Eventually(func() string {
			select {
			case action = <-manager.received:
				return action.Get(protocol.FieldAction)
			default:
				return ""
			}
		}).Should(Equal(name))

		return action
	}

	It("computes the digest as the hex MD5 of challenge and secret", func() {
		Expect(client.Digest("abc123", "secret")).To(Equal("38d4588fdbc729ba5f07c49b42d195a0"))
	})

	It("requires credentials", func() {
		Expect(conn.Connect(ctx, manager.Host(), manager.Port())).To(Succeed())

		Expect(conn.Login(ctx, "", "secret", "")).To(MatchError(client.ErrPrecondition))
		Expect(conn.Login(ctx, "admin", "", "")).To(MatchError(client.ErrPrecondition))
		Expect(conn.State()).To(Equal(client.Connected))
	})

	It("requires a connection", func() {
		Expect(conn.Login(ctx, "admin", "secret", "")).To(MatchError(client.ErrPrecondition))
		Expect(conn.State()).To(Equal(client.Disconnected))
	})

	Context("when the manager issues a challenge", func() {
		BeforeEach(func() {
			manager.Handle("Challenge", reply("Success", [2]string{"Challenge", "abc123"}))
			Expect(conn.Connect(ctx, manager.Host(), manager.Port())).To(Succeed())
		})

		It("logs in with the digest instead of the secret", func() {
			manager.Handle("Login", reply("Success", [2]string{"Message", "Authentication accepted"}))

			Expect(conn.Login(ctx, "admin", "secret", "")).To(Succeed())
			Expect(conn.State()).To(Equal(client.Authenticated))

			challenge := receiveAction("Challenge")
			Expect(challenge.Get("AuthType")).To(Equal("MD5"))

			login := receiveAction("Login")
			Expect(login.Get("Username")).To(Equal("admin"))
			Expect(login.Get("AuthType")).To(Equal("MD5"))
			Expect(login.Get("Key")).To(Equal(client.Digest("abc123", "secret")))
			Expect(login.Has("Secret")).To(BeFalse())
		})

		It("sends the event mask", func() {
			manager.Handle("Login", reply("Success"))

			Expect(conn.Login(ctx, "admin", "secret", "call,system")).To(Succeed())

			login := receiveAction("Login")
			Expect(login.Get("Events")).To(Equal("call,system"))
		})

		It("stays Connected when the login is rejected", func() {
			manager.Handle("Login", reply("Error", [2]string{"Message", "Authentication failed"}))

			err := conn.Login(ctx, "admin", "wrong", "")
			Expect(err).To(MatchError(client.ErrLoginFailed))
			Expect(err.Error()).To(ContainSubstring("Authentication failed"))
			Expect(conn.State()).To(Equal(client.Connected))
		})

		It("returns to Connected on logoff", func() {
			manager.Handle("Login", reply("Success"))
			manager.Handle("Logoff", reply("Goodbye", [2]string{"Message", "Thanks for all the fish."}))

			Expect(conn.Login(ctx, "admin", "secret", "")).To(Succeed())
			Expect(conn.Logoff(ctx)).To(Succeed())
			Expect(conn.State()).To(Equal(client.Connected))
		})

		It("disconnects straight from Authenticated", func() {
			manager.Handle("Login", reply("Success"))

			Expect(conn.Login(ctx, "admin", "secret", "")).To(Succeed())
			Expect(conn.Disconnect()).To(Succeed())
			Expect(conn.State()).To(Equal(client.Disconnected))
		})
	})

	Context("when the manager refuses to issue a challenge", func() {
		BeforeEach(func() {
			manager.Handle("Challenge", reply("Error", [2]string{"Message", "Must specify AuthType"}))
			manager.Handle("Login", reply("Success"))
			Expect(conn.Connect(ctx, manager.Host(), manager.Port())).To(Succeed())
		})

		It("falls back to a plaintext login", func() {
			Expect(conn.Login(ctx, "admin", "secret", "")).To(Succeed())

			login := receiveAction("Login")
			Expect(login.Get("Secret")).To(Equal("secret"))
			Expect(login.Has("Key")).To(BeFalse())
		})
	})

	It("fails when the challenge goes unanswered", func() {
		manager.Handle("Challenge", func(*protocol.PropertyMap, io.Writer) {})
		Expect(conn.Connect(ctx, manager.Host(), manager.Port())).To(Succeed())

		Expect(conn.Login(ctx, "admin", "secret", "")).To(MatchError(client.ErrTimeout))
		Expect(conn.State()).To(Equal(client.Connected))
	})

	It("refuses to logoff unless Authenticated", func() {
		Expect(conn.Connect(ctx, manager.Host(), manager.Port())).To(Succeed())
		Expect(conn.Logoff(ctx)).To(MatchError(client.ErrPrecondition))
	})
})
