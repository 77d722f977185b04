package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFullName(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want ParsedName
	}{
		{
			name: "comma puts the surname first",
			raw:  "Dela Cruz, Juan Miguel",
			want: ParsedName{First: "Juan", Middle: "Miguel", Last: "Dela Cruz"},
		},
		{
			name: "comma with a single given name",
			raw:  "Santos, Maria",
			want: ParsedName{First: "Maria", Last: "Santos"},
		},
		{
			name: "natural order takes the last token as surname",
			raw:  "Juan Dela Cruz",
			want: ParsedName{First: "Juan", Middle: "Dela", Last: "Cruz"},
		},
		{
			name: "two tokens",
			raw:  "Maria Santos",
			want: ParsedName{First: "Maria", Last: "Santos"},
		},
		{
			name: "single token is a first name",
			raw:  "Juan",
			want: ParsedName{First: "Juan"},
		},
		{
			name: "four tokens join the middle",
			raw:  "Jose Protacio Rizal Mercado",
			want: ParsedName{First: "Jose", Middle: "Protacio Rizal", Last: "Mercado"},
		},
		{
			name: "whitespace only",
			raw:  "   ",
			want: ParsedName{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseFullName(tc.raw))
		})
	}
}

func TestParseFullNameHint(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		hint string
		want ParsedName
	}{
		{
			name: "last_first without a comma leads with the surname",
			raw:  "Santos Maria Clara",
			hint: ParseHintLastFirst,
			want: ParsedName{First: "Maria", Middle: "Clara", Last: "Santos"},
		},
		{
			name: "last_first with a comma defers to the comma",
			raw:  "Dela Cruz, Juan",
			hint: ParseHintLastFirst,
			want: ParsedName{First: "Juan", Last: "Dela Cruz"},
		},
		{
			name: "last_first single token is a surname",
			raw:  "Santos",
			hint: ParseHintLastFirst,
			want: ParsedName{Last: "Santos"},
		},
		{
			name: "natural hint keeps the default order",
			raw:  "Juan Dela Cruz",
			hint: ParseHintNatural,
			want: ParsedName{First: "Juan", Middle: "Dela", Last: "Cruz"},
		},
		{
			name: "no hint keeps the default order",
			raw:  "Maria Santos",
			hint: "",
			want: ParsedName{First: "Maria", Last: "Santos"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseFullNameHint(tc.raw, tc.hint))
		})
	}
}
