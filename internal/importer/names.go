package importer

import "strings"

// ParsedName holds the parts extracted from a compound name cell.
type ParsedName struct {
	First  string
	Middle string
	Last   string
}

// Parse-format hints carried by mapping rules and commit requests.
const (
	ParseHintNatural   = "natural"
	ParseHintLastFirst = "last_first"
)

// ParseFullNameHint applies the column's declared format to cells the
// comma heuristic cannot decide. A comma always wins; without one, the
// last_first hint reads the leading token as the surname.
func ParseFullNameHint(raw, hint string) ParsedName {
	raw = strings.TrimSpace(raw)
	if hint != ParseHintLastFirst || strings.Contains(raw, ",") {
		return ParseFullName(raw)
	}
	tokens := strings.Fields(raw)
	switch len(tokens) {
	case 0:
		return ParsedName{}
	case 1:
		return ParsedName{Last: tokens[0]}
	default:
		return ParsedName{
			Last:   tokens[0],
			First:  tokens[1],
			Middle: strings.Join(tokens[2:], " "),
		}
	}
}

// ParseFullName splits a single name cell into parts. A comma means
// "Last, First Middle..."; without one, token count decides: one token
// is a first name, two are first+last, three or more take the first
// token as first name, the last token as last name, and join the rest
// as middle name.
func ParseFullName(raw string) ParsedName {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ParsedName{}
	}

	if last, rest, found := strings.Cut(raw, ","); found {
		parsed := ParsedName{Last: strings.TrimSpace(last)}
		tokens := strings.Fields(rest)
		if len(tokens) > 0 {
			parsed.First = tokens[0]
			parsed.Middle = strings.Join(tokens[1:], " ")
		}
		return parsed
	}

	tokens := strings.Fields(raw)
	switch len(tokens) {
	case 1:
		return ParsedName{First: tokens[0]}
	case 2:
		return ParsedName{First: tokens[0], Last: tokens[1]}
	default:
		return ParsedName{
			First:  tokens[0],
			Middle: strings.Join(tokens[1:len(tokens)-1], " "),
			Last:   tokens[len(tokens)-1],
		}
	}
}
