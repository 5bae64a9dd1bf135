package sanitize

import "testing"

func TestIsUnsafe(t *testing.T) {
	safe := []string{"", "abc", "ABC-123", "user_42", "cal.2024", "a-b_c.d"}
	for _, s := range safe {
		if IsUnsafe(s) {
			t.Errorf("IsUnsafe(%q) = true, want false", s)
		}
	}

	unsafe := []string{
		"a b",
		"a;b",
		"id'--",
		"<script>",
		"a/b",
		"日本語",
		"x\n",
		"quote\"",
	}
	for _, s := range unsafe {
		if !IsUnsafe(s) {
			t.Errorf("IsUnsafe(%q) = false, want true", s)
		}
	}
}

func TestEncodeNeutralisesStorageSignificantRunes(t *testing.T) {
	cases := map[string]string{
		"plain text":  "plain text",
		"a'b":         "a&#x27;b",
		`say "hi"`:    "say &#x22;hi&#x22;",
		"x;y":         "x&#x3b;y",
		"<b>bold</b>": "&#x3c;b&#x3e;bold&#x3c;&#x2f;b&#x3e;",
	}
	for in, want := range cases {
		if got := Encode(in); got != want {
			t.Errorf("Encode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeInvertsEncode(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"quotes ' and \" here",
		"semi;colon",
		"<script>alert('x')</script>",
		"emoji 🎉 and accents é",
		"1 + 1 = 2; DROP TABLE users;--",
		"&#x already looks encoded;",
	}
	for _, in := range inputs {
		if got := Decode(Encode(in)); got != in {
			t.Errorf("Decode(Encode(%q)) = %q", in, got)
		}
	}
}

func TestDecodeKeepsMalformedReferences(t *testing.T) {
	cases := map[string]string{
		"&#x":        "&#x",
		"&#xzz;":     "&#xzz;",
		"&#x27":      "&#x27",
		"plain text": "plain text",
	}
	for in, want := range cases {
		if got := Decode(in); got != want {
			t.Errorf("Decode(%q) = %q, want %q", in, got, want)
		}
	}
}
