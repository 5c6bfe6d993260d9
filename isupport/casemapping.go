package isupport

import "strings"

// A CaseMapping folds nicknames and channel names for comparison. The server
// announces which one it uses with the CASEMAPPING token.
type CaseMapping interface {
	Name() string
	ToLower(s string) string
	Equal(a, b string) bool
	Compare(a, b string) int
}

var (
	// ASCII only folds A-Z.
	ASCII CaseMapping = asciiMapping{}

	// RFC1459 folds A-Z as well as []\^ to {}|~.
	RFC1459 CaseMapping = rfc1459Mapping{strict: false}

	// StrictRFC1459 is like RFC1459, but it leaves ^ and ~ alone.
	StrictRFC1459 CaseMapping = rfc1459Mapping{strict: true}
)

// CaseMappingByName returns the mapping by its CASEMAPPING token value. The
// match is case-insensitive.
func CaseMappingByName(name string) (CaseMapping, bool) {
	switch strings.ToLower(name) {
	case "ascii":
		return ASCII, true
	case "rfc1459":
		return RFC1459, true
	case "strict-rfc1459":
		return StrictRFC1459, true
	}

	return nil, false
}

type asciiMapping struct{}

func (asciiMapping) Name() string {
	return "ascii"
}

func (asciiMapping) ToLower(s string) string {
	return foldString(s, func(b byte) byte {
		if b >= 'A' && b <= 'Z' {
			return b + ('a' - 'A')
		}
		return b
	})
}

func (m asciiMapping) Equal(a, b string) bool {
	return m.ToLower(a) == m.ToLower(b)
}

func (m asciiMapping) Compare(a, b string) int {
	return strings.Compare(m.ToLower(a), m.ToLower(b))
}

type rfc1459Mapping struct {
	strict bool
}

func (m rfc1459Mapping) Name() string {
	if m.strict {
		return "strict-rfc1459"
	}

	return "rfc1459"
}

func (m rfc1459Mapping) ToLower(s string) string {
	return foldString(s, func(b byte) byte {
		switch {
		case b >= 'A' && b <= 'Z':
			return b + ('a' - 'A')
		case b == '[':
			return '{'
		case b == ']':
			return '}'
		case b == '\\':
			return '|'
		case b == '^' && !m.strict:
			return '~'
		}
		return b
	})
}

func (m rfc1459Mapping) Equal(a, b string) bool {
	return m.ToLower(a) == m.ToLower(b)
}

func (m rfc1459Mapping) Compare(a, b string) int {
	return strings.Compare(m.ToLower(a), m.ToLower(b))
}

// foldString only allocates if a byte changes. Multi-byte runes are left as
// they are since none of the mappings touch them.
func foldString(s string, fold func(b byte) byte) string {
	for i := 0; i < len(s); i++ {
		if fold(s[i]) != s[i] {
			buf := []byte(s)
			for j := i; j < len(buf); j++ {
				buf[j] = fold(buf[j])
			}
			return string(buf)
		}
	}

	return s
}
