package protocol_test

import (
	"bytes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/amictl/protocol"
)

var _ = Describe("Writer", func() {
	Describe("WriteAction", func() {
		It("starts with the Action field", func() {
			w := bytes.NewBuffer([]byte{})

			Expect(protocol.WriteAction(w, protocol.NewPingAction())).To(Succeed())
			Expect(w.String()).To(HavePrefix("Action: Ping\r\n"))
		})

		It("ends in a blank line", func() {
			w := bytes.NewBuffer([]byte{})

			Expect(protocol.WriteAction(w, protocol.NewPingAction())).To(Succeed())
			Expect(w.String()).To(HaveSuffix("\r\n\r\n"))
		})

		It("assigns an ActionID", func() {
			w := bytes.NewBuffer([]byte{})
			action := protocol.NewPingAction()

			Expect(protocol.WriteAction(w, action)).To(Succeed())
			Expect(action.ID()).NotTo(BeEmpty())
			Expect(w.String()).To(Equal("Action: Ping\r\nActionID: " + action.ID() + "\r\n\r\n"))
		})

		It("keeps a caller supplied ActionID", func() {
			w := bytes.NewBuffer([]byte{})
			action := protocol.NewPingAction()
			action.Set("ActionID", "42")

			Expect(protocol.WriteAction(w, action)).To(Succeed())
			Expect(w.String()).To(Equal("Action: Ping\r\nActionID: 42\r\n\r\n"))
		})
	})

	Describe("WriteFields", func() {
		It("writes the fields in order", func() {
			w := bytes.NewBuffer([]byte{})

			Expect(protocol.WriteFields(w,
				[2]string{"Response", "Success"},
				[2]string{"ActionID", "42"},
			)).To(Succeed())
			Expect(w.String()).To(Equal("Response: Success\r\nActionID: 42\r\n\r\n"))
		})
	})
})
