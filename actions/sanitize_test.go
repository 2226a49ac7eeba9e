package actions

import "testing"

func TestStripMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<b>bold</b> move", "bold move"},
		{"# Heading\nbody", "Heading body"},
		{"see [docs](https://example.com) here", "see docs here"},
		{"*emphasis* and `code`", "emphasis and code"},
		{"  padded\n\nlines  ", "padded lines"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := StripMarkup(tc.in); got != tc.want {
			t.Errorf("StripMarkup(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
