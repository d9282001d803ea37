package protocol

import (
	"bytes"
	"strings"

	"go.uber.org/zap"
)

var crlfBytes = []byte("\r\n")

const (
	prefixBanner   = "Asterisk"
	prefixResponse = "Response:"
	prefixEvent    = "Event:"
)

// Kind classifies a framed message.
type Kind int

const (
	KindUnknown Kind = iota
	KindVersion
	KindResponse
	KindFollows
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindVersion:
		return "version"
	case KindResponse:
		return "response"
	case KindFollows:
		return "follows"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Sink receives the messages recovered by a Framer. It is called
// synchronously from Feed, so implementations should hand the raw text off
// rather than do slow work.
type Sink interface {
	HandleVersion(v Version)
	HandleResponse(raw string)
	HandleEvent(raw string)
}

// Framer turns an arbitrarily chunked byte stream into complete manager
// messages. Bytes that do not yet form a complete message are carried over to
// the next call to Feed.
//
// A Framer is not safe for concurrent use; it belongs to a single read loop.
type Framer struct {
	buf []byte

	// lineScanned and bodyScanned are how far into buf the searches for the
	// end of the first line and the end of the first message have looked
	// without finding it
	lineScanned int
	bodyScanned int

	sink Sink
	log  *zap.Logger
}

func NewFramer(sink Sink, log *zap.Logger) *Framer {
	if log == nil {
		log = zap.NewNop()
	}

	return &Framer{
		sink: sink,
		log:  log,
	}
}

// Feed appends chunk to the carry-over buffer and dispatches every complete
// message it now contains, in order. Each byte is searched a bounded number of
// times however the message is chunked.
func (f *Framer) Feed(chunk []byte) {
	f.buf = append(f.buf, chunk...)

	start := 0

	for {
		rest := f.buf[start:]

		cut := index(rest, crlfBytes, f.lineScanned)
		if cut < 0 {
			f.lineScanned = len(rest)
			break
		}

		if cut == 0 {
			// blank separator line between messages
			start += len(crlfBytes)
			f.rewind()
			continue
		}

		line := string(rest[:cut])
		kind := Classify(line)

		var terminator []byte

		switch kind {
		case KindVersion:
			terminator = crlfBytes

		case KindFollows:
			terminator = CommandTerminal

		case KindResponse, KindEvent:
			terminator = MessageTerminal

		default:
			if !strings.Contains(line, Separator) {
				f.log.Warn("Dropping invalid line", zap.String("line", line))
				start += cut + len(crlfBytes)
				f.rewind()
				continue
			}

			// Looks like fields, but not led by Response or Event. Take the
			// whole block and decide once it's parsed.
			terminator = MessageTerminal
		}

		end := index(rest, terminator, f.bodyScanned)
		if end < 0 {
			// wait for the rest of the message
			f.lineScanned = cut
			f.bodyScanned = len(rest)
			break
		}

		body := string(rest[:end])
		start += end + len(terminator)
		f.rewind()

		f.dispatch(kind, body)
	}

	if start > 0 {
		n := copy(f.buf, f.buf[start:])
		f.buf = f.buf[:n]
	}
}

// rewind starts the searches afresh for the next message.
func (f *Framer) rewind() {
	f.lineScanned = 0
	f.bodyScanned = 0
}

// index finds sep in buf, skipping the first scanned bytes that an earlier
// search has already looked at. It backs off by len(sep)-1 so a separator
// split across chunks is still found.
func index(buf, sep []byte, scanned int) int {
	from := scanned - (len(sep) - 1)
	if from < 0 {
		from = 0
	}

	if from > len(buf) {
		from = len(buf)
	}

	i := bytes.Index(buf[from:], sep)
	if i < 0 {
		return -1
	}

	return from + i
}

// Pending returns the bytes carried over to the next Feed.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Reset discards any carried over bytes.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.rewind()
}

func (f *Framer) dispatch(kind Kind, body string) {
	f.log.Debug("Framed message",
		zap.Stringer("kind", kind),
		zap.String("body", body))

	switch kind {
	case KindVersion:
		f.sink.HandleVersion(ParseVersion(body))

	case KindResponse, KindFollows:
		f.sink.HandleResponse(body)

	case KindEvent:
		f.sink.HandleEvent(body)

	default:
		p := ParsePropertyMap(body)

		switch {
		case p.Has(FieldResponse):
			f.sink.HandleResponse(body)

		case p.Has(FieldEvent):
			f.sink.HandleEvent(body)

		default:
			f.log.Warn("Dropping message of unknown type", zap.String("body", body))
		}
	}
}

// Classify determines a message's kind from its first line. Prefixes are
// matched case insensitively.
func Classify(line string) Kind {
	switch {
	case hasPrefixFold(line, prefixBanner):
		return KindVersion

	case hasPrefixFold(line, prefixResponse):
		if ParseResponseType(line[len(prefixResponse):]) == RespFollows {
			return KindFollows
		}
		return KindResponse

	case hasPrefixFold(line, prefixEvent):
		return KindEvent

	default:
		return KindUnknown
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
