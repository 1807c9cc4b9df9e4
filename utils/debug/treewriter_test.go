package debug

import "testing"

func TestTreeWriter(t *testing.T) {
	tw := NewTreeWriter()
	if tw.String() != "" {
		t.Fatal("Expected empty string from new TreeWriter")
	}

	tw.Line(0, "root %d", 1)
	tw.Line(2, "nested")
	tw.Line(-1, "negative depth")
	tw.TextBlock(1, "text", "a\tb")
	tw.TextBlock(1, "empty", "")
	tw.Change(1, "page", 1, 2)
	tw.Change(1, "page", 3, 3)

	want := "root 1\n" +
		"    nested\n" +
		"negative depth\n" +
		"  text: \"a\\tb\"\n" +
		"  empty: \n" +
		"  page: 1 -> 2\n" +
		"  page: 3\n"
	if got := tw.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestTreeWriter_TextBlockEscapes(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain", "hello", "v: \"hello\"\n"},
		{"quote", `say "hi"`, "v: \"say \\\"hi\\\"\"\n"},
		{"newline", "a\nb", "v: \"a\\nb\"\n"},
		{"unicode", "Привет", "v: \"Привет\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.TextBlock(0, "v", tt.value)
			if got := tw.String(); got != tt.want {
				t.Errorf("TextBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}
