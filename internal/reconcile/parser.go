package reconcile

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Entry is one parsed input token. An entry always carries a sequence number;
// tokens that do not resolve to one are reported as parse errors instead.
type Entry struct {
	Raw        string
	OrderNo    string // order number embedded in a scanned URL, "" if none
	SequenceNo int
}

// Unit QR URLs look like https://host/q/{orderNo}/{seq}; master-case QR URLs
// use a /c/ path segment and are a different artifact class entirely.
var (
	unitURLPattern = regexp.MustCompile(`/q/([A-Za-z0-9_-]+)/(\d+)/?(?:\?.*)?$`)
	caseURLPattern = regexp.MustCompile(`/c/[A-Za-z0-9_-]+`)
	digitsPattern  = regexp.MustCompile(`^\d+$`)
)

// Parse splits pasted text into entries. A master-case token aborts the whole
// request via *Error(WRONG_QR_TYPE) since it means the user scanned the wrong
// kind of code, not a bad token. Empty input yields zero entries and no error.
func Parse(text string) ([]Entry, []string, error) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})

	var entries []Entry
	var parseErrors []string

	for _, tok := range tokens {
		if caseURLPattern.MatchString(tok) {
			return nil, nil, newError(CodeWrongQRType,
				"master-case QR code detected (%s); scan individual unit codes instead", tok)
		}

		if digitsPattern.MatchString(tok) {
			seq, err := strconv.Atoi(tok)
			if err != nil || seq <= 0 {
				parseErrors = append(parseErrors, fmt.Sprintf("invalid sequence number %q", tok))
				continue
			}
			entries = append(entries, Entry{Raw: tok, SequenceNo: seq})
			continue
		}

		if m := unitURLPattern.FindStringSubmatch(tok); m != nil {
			seq, err := strconv.Atoi(m[2])
			if err != nil || seq <= 0 {
				parseErrors = append(parseErrors, fmt.Sprintf("invalid sequence number in %q", tok))
				continue
			}
			entries = append(entries, Entry{Raw: tok, OrderNo: m[1], SequenceNo: seq})
			continue
		}

		// Query form: https://host/q?o=ORDER&s=SEQ
		if entry, ok := parseQueryForm(tok); ok {
			entries = append(entries, entry)
			continue
		}

		parseErrors = append(parseErrors, fmt.Sprintf("unrecognized token %q", tok))
	}

	return entries, parseErrors, nil
}

func parseQueryForm(tok string) (Entry, bool) {
	if !strings.Contains(tok, "://") {
		return Entry{}, false
	}
	u, err := url.Parse(tok)
	if err != nil {
		return Entry{}, false
	}
	q := u.Query()
	seqStr := q.Get("s")
	if seqStr == "" {
		return Entry{}, false
	}
	seq, err := strconv.Atoi(seqStr)
	if err != nil || seq <= 0 {
		return Entry{}, false
	}
	return Entry{Raw: tok, OrderNo: q.Get("o"), SequenceNo: seq}, true
}
