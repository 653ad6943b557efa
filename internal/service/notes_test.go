package service

import (
	"strings"
	"testing"
)

func TestSanitizeNotesRejectsLongInput(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 250)
	_, err := SanitizeNotes(&long)
	wantCode(t, err, "validation")

	// length is checked before markup is stripped
	justOver := strings.Repeat("a", MaxNotesLength-7) + "<b>x</b>"
	_, err = SanitizeNotes(&justOver)
	wantCode(t, err, "validation")
}

func TestSanitizeNotesCountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("ç", MaxNotesLength)
	got, err := SanitizeNotes(&s)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got == nil || *got != s {
		t.Fatalf("got %v, want unchanged note", got)
	}
}

func TestSanitizeNotesStripsMarkup(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want *string
	}{
		{name: "tags", in: "<b>client</b> visit", want: ptr("client visit")},
		{name: "script scheme", in: "see JavaScript:alert(1)", want: ptr("see alert(1)")},
		{name: "event attribute", in: "x onclick= y", want: ptr("x y")},
		{name: "whitespace", in: "  lunch \n\t at  noon ", want: ptr("lunch at noon")},
		{name: "nul byte", in: "a\x00b", want: ptr("ab")},
		{name: "empty after cleaning", in: " <br/> ", want: nil},
		{name: "limit with markup", in: strings.Repeat("a", 192) + "<b>x</b>", want: ptr(strings.Repeat("a", 192) + "x")},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := tc.in
			got, err := SanitizeNotes(&in)
			if err != nil {
				t.Fatalf("sanitize: %v", err)
			}
			switch {
			case tc.want == nil && got != nil:
				t.Fatalf("got %q, want nil", *got)
			case tc.want != nil && (got == nil || *got != *tc.want):
				t.Fatalf("got %v, want %q", got, *tc.want)
			}
		})
	}
}

func TestSanitizeNotesNil(t *testing.T) {
	t.Parallel()

	got, err := SanitizeNotes(nil)
	if err != nil || got != nil {
		t.Fatalf("got %v, %v; want nil, nil", got, err)
	}
}
