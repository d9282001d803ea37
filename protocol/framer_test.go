package protocol_test

import (
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/amictl/protocol"
)

type framed struct {
	Kind string
	Body string
}

type recordingSink struct {
	messages []framed
}

func (r *recordingSink) HandleVersion(v protocol.Version) {
	r.messages = append(r.messages, framed{"version", v.Raw})
}

func (r *recordingSink) HandleResponse(raw string) {
	r.messages = append(r.messages, framed{"response", raw})
}

func (r *recordingSink) HandleEvent(raw string) {
	r.messages = append(r.messages, framed{"event", raw})
}

const stream = "Asterisk Call Manager/5.0.1\r\n" +
	"Response: Success\r\nActionID: 1\r\nMessage: Authentication accepted\r\n\r\n" +
	"Event: FullyBooted\r\nPrivilege: system,all\r\nStatus: Fully Booted\r\n\r\n" +
	"\r\n" +
	"Response: Follows\r\nPrivilege: Command\r\nActionID: 2\r\nline one\r\n\r\nline: three\r\n--END COMMAND--\r\n\r\n" +
	"event: Hangup\r\nChannel: SIP/1\r\n\r\n" +
	"RESPONSE: Error\r\nActionID: 3\r\nMessage: Permission denied\r\n\r\n"

func frame(chunks ...string) []framed {
	sink := &recordingSink{}
	f := protocol.NewFramer(sink, nil)

	for _, chunk := range chunks {
		f.Feed([]byte(chunk))
	}

	return sink.messages
}

var _ = Describe("Framer", func() {
	It("recovers every message from a single chunk", func() {
		Expect(frame(stream)).To(Equal([]framed{
			{"version", "Asterisk Call Manager/5.0.1"},
			{"response", "Response: Success\r\nActionID: 1\r\nMessage: Authentication accepted"},
			{"event", "Event: FullyBooted\r\nPrivilege: system,all\r\nStatus: Fully Booted"},
			{"response", "Response: Follows\r\nPrivilege: Command\r\nActionID: 2\r\nline one\r\n\r\nline: three\r\n"},
			{"event", "event: Hangup\r\nChannel: SIP/1"},
			{"response", "RESPONSE: Error\r\nActionID: 3\r\nMessage: Permission denied"},
		}))
	})

	It("produces the same messages when fed one byte at a time", func() {
		chunks := make([]string, 0, len(stream))
		for i := 0; i < len(stream); i++ {
			chunks = append(chunks, stream[i:i+1])
		}

		Expect(frame(chunks...)).To(Equal(frame(stream)))
	})

	It("produces the same messages for every two chunk split", func() {
		whole := frame(stream)

		for i := 1; i < len(stream); i++ {
			Expect(frame(stream[:i], stream[i:])).To(Equal(whole), "split at %d", i)
		}
	})

	It("reassembles an event split mid line", func() {
		sink := &recordingSink{}
		f := protocol.NewFramer(sink, nil)

		f.Feed([]byte("Event: Hangup\r\nChan"))
		Expect(sink.messages).To(BeEmpty())

		f.Feed([]byte("nel: SIP/1\r\n\r\n"))
		Expect(sink.messages).To(HaveLen(1))

		event := protocol.ParseEvent(sink.messages[0].Body)
		Expect(event.Name()).To(Equal("Hangup"))
		Expect(event.Get("Channel")).To(Equal("SIP/1"))
		Expect(f.Pending()).To(Equal(0))
	})

	It("carries over an incomplete message", func() {
		sink := &recordingSink{}
		f := protocol.NewFramer(sink, nil)

		f.Feed([]byte("Response: Success\r\nActionID: 1\r\n"))
		Expect(sink.messages).To(BeEmpty())
		Expect(f.Pending()).To(Equal(len("Response: Success\r\nActionID: 1\r\n")))

		f.Reset()
		Expect(f.Pending()).To(Equal(0))
	})

	It("keeps the whole of a Follows response together", func() {
		messages := frame("Response: Follows\r\nActionID: 9\r\nfirst\r\n\r\nsecond\r\n--END COMMAND--\r\n\r\n")
		Expect(messages).To(HaveLen(1))

		resp := protocol.ParseResponse(messages[0].Body)
		Expect(resp.Type).To(Equal(protocol.RespFollows))
		Expect(resp.ActionID()).To(Equal("9"))
		Expect(protocol.CommandResponse{Response: resp}.Output()).To(Equal("first\r\nsecond"))
	})

	It("reassembles a large Follows output fed in read sized chunks", func() {
		var b strings.Builder
		b.WriteString("Response: Follows\r\nActionID: 10\r\n")
		for b.Len() < 1<<20 {
			b.WriteString("PJSIP/1000-0000002a   default   200   1   Up   Dial(PJSIP/200)\r\n")
		}
		body := b.String()
		wire := body + "--END COMMAND--\r\n\r\nEvent: Reload\r\n\r\n"

		sink := &recordingSink{}
		f := protocol.NewFramer(sink, nil)

		for len(wire) > 0 {
			n := 64 << 10
			if n > len(wire) {
				n = len(wire)
			}

			f.Feed([]byte(wire[:n]))
			wire = wire[n:]
		}

		Expect(sink.messages).To(HaveLen(2))
		Expect(sink.messages[0].Kind).To(Equal("response"))
		Expect(sink.messages[0].Body == body).To(BeTrue())
		Expect(sink.messages[1]).To(Equal(framed{"event", "Event: Reload"}))
		Expect(f.Pending()).To(Equal(0))
	})

	It("finds a terminator split across chunks after a long body", func() {
		long := strings.Repeat("x", 8192)
		messages := frame(
			"Response: Follows\r\nActionID: 11\r\n",
			long+"\r\n--END CO",
			"MMAND--\r",
			"\n\r",
			"\nResponse: Success\r\nActionID: 12\r\n\r",
			"\n",
		)

		Expect(messages).To(HaveLen(2))
		Expect(messages[0].Body == "Response: Follows\r\nActionID: 11\r\n"+long+"\r\n").To(BeTrue())
		Expect(messages[1]).To(Equal(framed{"response", "Response: Success\r\nActionID: 12"}))
	})

	It("drops lines it cannot classify and carries on", func() {
		Expect(frame("complete garbage\r\nEvent: Reload\r\n\r\n")).To(Equal([]framed{
			{"event", "Event: Reload"},
		}))
	})

	It("routes field blocks not led by Response or Event by their fields", func() {
		Expect(frame(
			"ActionID: 5\r\nResponse: Success\r\n\r\n",
			"Channel: SIP/1\r\nEvent: Hangup\r\n\r\n",
			"Foo: bar\r\n\r\n",
		)).To(Equal([]framed{
			{"response", "ActionID: 5\r\nResponse: Success"},
			{"event", "Channel: SIP/1\r\nEvent: Hangup"},
		}))
	})

	Describe("Classify()", func() {
		It("matches prefixes case insensitively", func() {
			Expect(protocol.Classify("asterisk call manager/1.1")).To(Equal(protocol.KindVersion))
			Expect(protocol.Classify("response: follows")).To(Equal(protocol.KindFollows))
			Expect(protocol.Classify("Response: Success")).To(Equal(protocol.KindResponse))
			Expect(protocol.Classify("EVENT: Hangup")).To(Equal(protocol.KindEvent))
			Expect(protocol.Classify("Channel: SIP/1")).To(Equal(protocol.KindUnknown))
		})
	})
})
