package outfmt

import (
	"bytes"
	"context"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"text", Text, false},
		{"", Text, false},
		{"json", JSON, false},
		{" JSON ", JSON, false},
		{"jsonl", JSONL, false},
		{"ndjson", JSONL, false},
		{"yaml", Text, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && mode != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, mode, tt.want)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	for mode, want := range map[Mode]string{Text: "text", JSON: "json", JSONL: "jsonl"} {
		if mode.String() != want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(mode), mode.String(), want)
		}
	}
}

func TestSettings_Defaults(t *testing.T) {
	ctx := context.Background()
	if ModeFromContext(ctx) != Text || IsJSON(ctx) || IsJSONL(ctx) || IsCompact(ctx) {
		t.Error("empty context should be plain text")
	}
	if GetQuery(ctx) != "" || GetTemplate(ctx) != "" {
		t.Error("empty context should carry no query or template")
	}
}

func TestSettings_Layered(t *testing.T) {
	base := WithMode(context.Background(), JSON)
	ctx := WithQuery(WithCompact(base, true), ".id")
	ctx = WithTemplate(ctx, "{{.}}")

	if !IsJSON(ctx) || IsJSONL(ctx) {
		t.Error("mode should survive later settings")
	}
	if !IsCompact(ctx) || GetQuery(ctx) != ".id" || GetTemplate(ctx) != "{{.}}" {
		t.Errorf("settings lost: compact=%v query=%q template=%q", IsCompact(ctx), GetQuery(ctx), GetTemplate(ctx))
	}
	if IsCompact(base) || GetQuery(base) != "" {
		t.Error("parent context must not change")
	}
}

func TestIsCompact_JSONL(t *testing.T) {
	if !IsCompact(WithMode(context.Background(), JSONL)) {
		t.Error("JSON lines output is always compact")
	}
}

func TestWriteJSON(t *testing.T) {
	data := map[string]string{"url": "https://api.test/a?x=1&y=<2>"}

	var pretty bytes.Buffer
	if err := WriteJSON(&pretty, data, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "{\n  \"url\": \"https://api.test/a?x=1&y=<2>\"\n}\n"; pretty.String() != want {
		t.Errorf("pretty = %q, want %q", pretty.String(), want)
	}

	var compact bytes.Buffer
	if err := WriteJSON(&compact, data, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "{\"url\":\"https://api.test/a?x=1&y=<2>\"}\n"; compact.String() != want {
		t.Errorf("compact = %q, want %q", compact.String(), want)
	}
}
