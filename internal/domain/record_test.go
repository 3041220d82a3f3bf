package domain

import "testing"

func TestCleanMemberName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Jane Doe ":     "Jane Doe",
		".,Jane Doe":      "Jane Doe",
		"., Jane Doe  ":   "Jane Doe",
		"Jane., Doe":      "Jane., Doe",
		"":                "",
		".,":              "",
		"., .,John Smith": "John Smith",
	}

	for raw, want := range cases {
		got := CleanMemberName(raw)
		if got != want {
			t.Fatalf("CleanMemberName(%q) = %q, want %q", raw, got, want)
		}
		if again := CleanMemberName(got); again != got {
			t.Fatalf("CleanMemberName not idempotent for %q: %q -> %q", raw, got, again)
		}
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	if fp := Fingerprint(nil); fp != "" {
		t.Fatalf("expected empty fingerprint, got %q", fp)
	}

	records := []Record{{MemberName: ".,Alice"}, {MemberName: "Bob"}}
	if fp := Fingerprint(records); fp != "Alice" {
		t.Fatalf("unexpected fingerprint: %q", fp)
	}
}
