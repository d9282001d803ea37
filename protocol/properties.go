package protocol

import (
	"strings"
)

const (
	// UnparsedKey holds any text that could not be parsed as a `Key: Value` line.
	UnparsedKey = ""

	// Separator sits between a field name and its value.
	Separator = ": "

	// maxKeyLength bounds where the separator may appear for a line to be a header.
	// A ': ' found further along is part of free text, not a field name.
	maxKeyLength = 35
)

// PropertyMap is an ordered set of message fields. Every action, response and
// event is a PropertyMap underneath.
//
// Field names keep their original case for serialisation but lookups are case
// insensitive, so "ActionID" and "Actionid" address the same field.
type PropertyMap struct {
	keys   []string
	values map[string]string

	// index maps a lower-cased field name to the name as first inserted
	index map[string]string
}

func NewPropertyMap() *PropertyMap {
	return &PropertyMap{
		keys:   make([]string, 0, 8),
		values: make(map[string]string),
		index:  make(map[string]string),
	}
}

// ParsePropertyMap decodes a raw message block. It never fails: lines that are
// not headers, and every line after the first such line, are concatenated into
// the UnparsedKey field.
func ParsePropertyMap(raw string) *PropertyMap {
	p := NewPropertyMap()

	var unparsed []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		sep := strings.Index(line, Separator)
		if len(unparsed) == 0 && sep > 0 && sep < maxKeyLength {
			p.Set(line[:sep], line[sep+len(Separator):])
			continue
		}

		unparsed = append(unparsed, line)
	}

	if len(unparsed) > 0 {
		p.Set(UnparsedKey, strings.Join(unparsed, string(Terminal)))
	}

	return p
}

// Set inserts a field, or overwrites its value if it already exists. An
// overwritten field keeps its original position and spelling.
func (p *PropertyMap) Set(key, value string) {
	lower := strings.ToLower(key)

	if existing, ok := p.index[lower]; ok {
		p.values[existing] = value
		return
	}

	p.index[lower] = key
	p.keys = append(p.keys, key)
	p.values[key] = value
}

// Get returns the value of a field, or an empty string if it is not set.
func (p *PropertyMap) Get(key string) string {
	value, _ := p.Lookup(key)
	return value
}

// Lookup is like Get but also reports whether the field was set.
func (p *PropertyMap) Lookup(key string) (string, bool) {
	existing, ok := p.index[strings.ToLower(key)]
	if !ok {
		return "", false
	}

	return p.values[existing], true
}

// Has reports whether the field is set.
func (p *PropertyMap) Has(key string) bool {
	_, ok := p.index[strings.ToLower(key)]
	return ok
}

// Keys returns the field names in insertion order.
func (p *PropertyMap) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

func (p *PropertyMap) Len() int {
	return len(p.keys)
}

// Unparsed returns the overflow text collected while parsing.
func (p *PropertyMap) Unparsed() string {
	return p.Get(UnparsedKey)
}

// Map copies the fields into a plain map. The unparsed overflow, if any, is
// included under the empty key.
func (p *PropertyMap) Map() map[string]string {
	m := make(map[string]string, len(p.keys))
	for _, key := range p.keys {
		m[key] = p.values[key]
	}
	return m
}

// String serialises the fields in insertion order, one `Key: Value` line each,
// followed by a blank line. Fields whose name is shorter than two characters
// are written as their bare value.
func (p *PropertyMap) String() string {
	var b strings.Builder

	for _, key := range p.keys {
		if len(key) < 2 {
			b.WriteString(p.values[key])
		} else {
			b.WriteString(key)
			b.WriteString(Separator)
			b.WriteString(p.values[key])
		}
		b.Write(Terminal)
	}

	b.Write(Terminal)

	return b.String()
}

// AccessorField maps an accessor name to the field it reads or writes:
// "getUniqueId" and "setUniqueId" address "UniqueId", "isMuted" addresses
// "Muted". Names without one of those prefixes are returned unchanged.
func AccessorField(accessor string) string {
	switch {
	case len(accessor) > 3 && (strings.HasPrefix(accessor, "get") || strings.HasPrefix(accessor, "set")):
		return accessor[3:]

	case len(accessor) > 2 && strings.HasPrefix(accessor, "is"):
		return accessor[2:]

	default:
		return accessor
	}
}
