package teatime

import (
	"net/http"
	"strings"
)

// LinkHeader is the response header carrying pagination relations.
const LinkHeader = "Link"

// Links holds the pagination relations parsed from a Link header. Each field
// is an absolute URL string, or empty when the server did not declare that
// relation. A Links value is built fresh per response and never mutated.
type Links struct {
	Prev  string
	Next  string
	First string
	Last  string
}

// HasNext reports whether a continuation URL is present.
func (l Links) HasNext() bool {
	return l.Next != ""
}

// IsZero reports whether no relation was declared.
func (l Links) IsZero() bool {
	return l == Links{}
}

// ParseLinkHeader parses a Link header value of the form
//
//	<https://h/x?page=1>; rel="prev", <https://h/x?page=3>; rel="next"
//
// into its named relations. The value must consist of one or more entries
// matching ("," )? "<" URL ">;" "rel=" QUOTE NAME QUOTE with optional
// whitespace around each token; anything that prevents matching at least one
// entry, or any trailing garbage, is a ParseError. Relation names outside
// prev, next, first, and last parse fine and are dropped. A later duplicate
// of a relation overwrites the earlier one.
func ParseLinkHeader(value string) (Links, error) {
	scanner := &linkScanner{input: value}

	var links Links

	entries := 0

	for {
		scanner.skipSpace()

		if scanner.done() {
			break
		}

		// Entry separators are optional per the grammar, including before
		// the first entry.
		if scanner.consume(',') {
			scanner.skipSpace()
		}

		urlStr, rel, err := scanner.entry()
		if err != nil {
			return Links{}, err
		}

		switch rel {
		case "prev":
			links.Prev = urlStr
		case "next":
			links.Next = urlStr
		case "first":
			links.First = urlStr
		case "last":
			links.Last = urlStr
		}

		entries++
	}

	if entries == 0 {
		return Links{}, scanner.errorf("expected at least one link entry")
	}

	return links, nil
}

// LinksFromHeader extracts pagination links from response headers. A missing
// Link header means "no link information" and reports ok=false without error;
// a present but malformed header is a ParseError.
func LinksFromHeader(header http.Header) (Links, bool, error) {
	value := header.Get(LinkHeader)
	if value == "" {
		return Links{}, false, nil
	}

	links, err := ParseLinkHeader(value)
	if err != nil {
		return Links{}, false, err
	}

	return links, true, nil
}

type linkScanner struct {
	input string
	pos   int
}

func (s *linkScanner) done() bool {
	return s.pos >= len(s.input)
}

func (s *linkScanner) skipSpace() {
	for !s.done() && (s.input[s.pos] == ' ' || s.input[s.pos] == '\t') {
		s.pos++
	}
}

func (s *linkScanner) consume(c byte) bool {
	if !s.done() && s.input[s.pos] == c {
		s.pos++

		return true
	}

	return false
}

// readUntil consumes up to but not including the delimiter and reports
// whether the delimiter was found before the end of input.
func (s *linkScanner) readUntil(delim byte) (string, bool) {
	end := strings.IndexByte(s.input[s.pos:], delim)
	if end < 0 {
		return "", false
	}

	read := s.input[s.pos : s.pos+end]
	s.pos += end

	return read, true
}

// entry parses one `<URL>; rel="NAME"` clause.
func (s *linkScanner) entry() (string, string, error) {
	if !s.consume('<') {
		return "", "", s.errorf("expected '<'")
	}

	urlStr, found := s.readUntil('>')
	if !found {
		return "", "", s.errorf("unterminated URL, missing '>'")
	}

	s.pos++ // '>'

	s.skipSpace()

	if !s.consume(';') {
		return "", "", s.errorf("expected ';' after URL")
	}

	s.skipSpace()

	if !strings.HasPrefix(s.input[s.pos:], "rel=") {
		return "", "", s.errorf("expected rel attribute")
	}

	s.pos += len("rel=")

	s.skipSpace()

	if !s.consume('"') {
		return "", "", s.errorf("expected opening quote for relation name")
	}

	rel, found := s.readUntil('"')
	if !found {
		return "", "", s.errorf("unterminated relation name, missing closing quote")
	}

	s.pos++ // '"'

	return urlStr, rel, nil
}

func (s *linkScanner) errorf(reason string) error {
	return &ParseError{Input: s.input, Offset: s.pos, Reason: reason}
}
