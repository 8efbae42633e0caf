package parse

import (
	"strings"
	"unicode"
)

// MsgID returns the canonical form of a message-id as used for threading:
// surrounding angle brackets removed, all white space dropped and lower
// cased. Some MUAs fold long ids in the middle, which is why inner white
// space is removed rather than rejected.
func MsgID(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "<")
	if i := strings.IndexByte(s, '>'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(stripSpace(s))
}

func stripSpace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// InReplyTo extracts the first message-id enclosed in angle brackets from
// an In-Reply-To header value. Anything else (comments, addresses, bare
// words) is ignored. An empty string is returned when no id was found.
func InReplyTo(raw string) string {
	for raw != "" {
		var id string
		id, raw = nextMsgID(raw)
		if id != "" {
			return id
		}
	}
	return ""
}

// MsgIDList parses a References header value into an ordered list of
// canonical message-ids. Garbage between ids is skipped, truncated entries
// (an opening < followed by another < before any >) are dropped, as are
// empty ids.
func MsgIDList(raw string) []string {
	var ids []string
	for raw != "" {
		var id string
		id, raw = nextMsgID(raw)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// nextMsgID consumes at most one id from s and returns the remainder, so
// that every call makes progress.
func nextMsgID(s string) (string, string) {
	start := strings.IndexByte(s, '<')
	if start < 0 {
		return "", ""
	}
	s = s[start+1:]
	end := strings.IndexAny(s, "<>")
	if end < 0 {
		return "", ""
	}
	if s[end] == '<' {
		// truncated entry
		return "", s[end:]
	}
	return strings.ToLower(stripSpace(s[:end])), s[end+1:]
}
