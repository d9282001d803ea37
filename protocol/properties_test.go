package protocol_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/amictl/protocol"
)

var _ = Describe("PropertyMap", func() {
	Describe("Set() / Get()", func() {
		It("returns an empty string for fields that are not set", func() {
			p := protocol.NewPropertyMap()
			Expect(p.Get("Channel")).To(BeEmpty())
			Expect(p.Has("Channel")).To(BeFalse())
		})

		It("overwrites rather than duplicates a repeated field", func() {
			p := protocol.NewPropertyMap()
			p.Set("Channel", "SIP/1")
			p.Set("Context", "default")
			p.Set("Channel", "SIP/2")

			Expect(p.Keys()).To(Equal([]string{"Channel", "Context"}))
			Expect(p.Get("Channel")).To(Equal("SIP/2"))
		})

		It("looks fields up case insensitively", func() {
			p := protocol.NewPropertyMap()
			p.Set("ActionID", "42")
			p.Set("actionid", "43")

			Expect(p.Keys()).To(Equal([]string{"ActionID"}))
			Expect(p.Get("ACTIONID")).To(Equal("43"))
		})
	})

	Describe("String()", func() {
		It("serialises fields in insertion order followed by a blank line", func() {
			p := protocol.NewPropertyMap()
			p.Set("Action", "Login")
			p.Set("Username", "admin")
			p.Set("Secret", "s3cret")

			Expect(p.String()).To(Equal("Action: Login\r\nUsername: admin\r\nSecret: s3cret\r\n\r\n"))
		})

		It("writes fields with short names as their bare value", func() {
			p := protocol.NewPropertyMap()
			p.Set("Response", "Follows")
			p.Set(protocol.UnparsedKey, "free text")

			Expect(p.String()).To(Equal("Response: Follows\r\nfree text\r\n\r\n"))
		})
	})

	Describe("ParsePropertyMap()", func() {
		It("parses Key: Value lines", func() {
			p := protocol.ParsePropertyMap("Response: Success\r\nActionID: 42\r\nMessage: ok\r\n")

			Expect(p.Keys()).To(Equal([]string{"Response", "ActionID", "Message"}))
			Expect(p.Get("Message")).To(Equal("ok"))
			Expect(p.Unparsed()).To(BeEmpty())
		})

		It("keeps values that contain the separator", func() {
			p := protocol.ParsePropertyMap("Message: Authentication accepted: welcome\r\n")
			Expect(p.Get("Message")).To(Equal("Authentication accepted: welcome"))
		})

		It("puts lines without a separator into the unparsed field", func() {
			p := protocol.ParsePropertyMap("Response: Follows\r\nActionID: 7\r\nuptime 2 hours\r\nloaded 1 hour\r\n")

			Expect(p.Get("ActionID")).To(Equal("7"))
			Expect(p.Unparsed()).To(Equal("uptime 2 hours\r\nloaded 1 hour"))
		})

		It("treats a separator beyond the key length limit as free text", func() {
			line := "This is a very long line of command output: with a colon"
			p := protocol.ParsePropertyMap("Response: Follows\r\n" + line + "\r\n")

			Expect(p.Has("This is a very long line of command output")).To(BeFalse())
			Expect(p.Unparsed()).To(Equal(line))
		})

		It("puts every line after the first unparsed one into the unparsed field", func() {
			p := protocol.ParsePropertyMap("Response: Follows\r\nfree text\r\nName: value\r\n")

			Expect(p.Has("Name")).To(BeFalse())
			Expect(p.Unparsed()).To(Equal("free text\r\nName: value"))
		})

		It("never fails", func() {
			p := protocol.ParsePropertyMap("garbage\r\n\r\n\x00\x01 more garbage")
			Expect(p.Keys()).To(Equal([]string{protocol.UnparsedKey}))
		})

		It("accepts bare \\n line breaks", func() {
			p := protocol.ParsePropertyMap("Event: Hangup\nChannel: SIP/1\n")
			Expect(p.Get("Channel")).To(Equal("SIP/1"))
		})

		It("parses what it serialises", func() {
			p := protocol.NewPropertyMap()
			p.Set("Event", "Newchannel")
			p.Set("Channel", "SIP/1000-00000001")
			p.Set("CallerIDName", "")
			p.Set("Context", "from-internal")
			p.Set("Variable", "a=b,c=d")

			Expect(protocol.ParsePropertyMap(p.String())).To(Equal(p))
		})
	})

	Describe("AccessorField()", func() {
		It("strips get, set and is prefixes", func() {
			Expect(protocol.AccessorField("getUniqueId")).To(Equal("UniqueId"))
			Expect(protocol.AccessorField("setChannel")).To(Equal("Channel"))
			Expect(protocol.AccessorField("isMuted")).To(Equal("Muted"))
		})

		It("leaves other names alone", func() {
			Expect(protocol.AccessorField("Channel")).To(Equal("Channel"))
			Expect(protocol.AccessorField("get")).To(Equal("get"))
		})
	})
})
