package citation

import (
	"regexp"
	"strconv"
	"strings"

	"decisionctl/internal/types"

	"github.com/google/uuid"
)

type Kind int

const (
	KindFullID Kind = iota + 1
	KindShortID
	KindTypeRef
)

func (k Kind) String() string {
	switch k {
	case KindFullID:
		return "full_id"
	case KindShortID:
		return "short_id"
	case KindTypeRef:
		return "type_ref"
	default:
		return "unknown"
	}
}

const (
	minPrefixLen = 4
	shortIDMax   = 8
)

var (
	typeRefPattern = regexp.MustCompile(`^([A-Za-z]+)(?:-(\d+))?$`)
	idPattern      = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z_-]*$`)
)

// Token is a parsed citation. A token may carry both an id reading and a type
// reading ("goal" is also a plausible id prefix); Kind names the primary one.
type Token struct {
	Raw   string
	Kind  Kind
	ID    string
	Type  types.MemoryType
	Index int
}

func (t Token) HasID() bool {
	return t.ID != ""
}

func (t Token) HasTypeRef() bool {
	return t.Type != "" && t.Index >= 1
}

func (t Token) String() string {
	if t.Kind == KindTypeRef {
		return t.Type.Label() + "-" + strconv.Itoa(t.Index)
	}
	return t.ID
}

// Parse classifies raw as a full id, a short id prefix, or a TYPE[-N]
// reference. Surrounding brackets and whitespace are ignored.
func Parse(raw string) (Token, bool) {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")
	value = strings.TrimSpace(value)
	if value == "" {
		return Token{}, false
	}
	tok := Token{Raw: raw}

	if m := typeRefPattern.FindStringSubmatch(value); m != nil {
		if memoryType, ok := types.ParseMemoryType(m[1]); ok {
			index := 1
			if m[2] != "" {
				n, err := strconv.Atoi(m[2])
				if err == nil {
					index = n
				} else {
					index = 0
				}
			}
			if index >= 1 {
				tok.Type = memoryType
				tok.Index = index
				tok.Kind = KindTypeRef
			}
		}
	}

	if parsed, err := uuid.Parse(value); err == nil {
		tok.ID = parsed.String()
		tok.Kind = KindFullID
		return tok, true
	}
	if len(value) >= minPrefixLen && idPattern.MatchString(value) {
		tok.ID = strings.ToLower(value)
		if tok.Kind == 0 {
			if len(value) > shortIDMax {
				tok.Kind = KindFullID
			} else {
				tok.Kind = KindShortID
			}
		}
	}
	if tok.Kind == 0 {
		return Token{}, false
	}
	return tok, true
}
