package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := map[string]string{
		"<b>Hello</b>   world":                 "Hello world",
		"&lt;script&gt;alert(1)&lt;/script&gt;": "alert(1)",
		"line one\nline  two":                  "line one\nline two",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Errorf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOptionalText(t *testing.T) {
	blank := " <br> "
	if OptionalText(&blank) != nil {
		t.Fatal("expected nil for markup-only input")
	}
	if OptionalText(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}
