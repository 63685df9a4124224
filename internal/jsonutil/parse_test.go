package jsonutil

import (
	"errors"
	"testing"
)

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"too short", "```{}```", "```{}```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.input); got != tt.want {
				t.Errorf("StripMarkdownFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain object", `{"a":1}`, `{"a":1}`, false},
		{"prose around", `Here you go: {"a":{"b":2}} hope it helps {x}`, `{"a":{"b":2}}`, false},
		{"brace in string", `{"s":"}{"} tail`, `{"s":"}{"}`, false},
		{"escaped quote", `{"s":"a\"}b"}`, `{"s":"a\"}b"}`, false},
		{"unbalanced first", `{ broken {"ok":true}`, `{"ok":true}`, false},
		{"never closed", `{"a":1`, ``, true},
		{"none", `no json here`, ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractObject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Level string `json:"level"`
	}

	got, err := ParseJSON[payload]("```json\n{\"level\": \"high\"}\n```")
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if got.Level != "high" {
		t.Errorf("Level = %q, want %q", got.Level, "high")
	}

	_, err = ParseJSON[payload]("sorry, I cannot help")
	if !errors.Is(err, ErrNoObject) {
		t.Errorf("ParseJSON() error = %v, want ErrNoObject", err)
	}

	if _, err := ParseJSON[payload](`{"level": 3}`); err == nil {
		t.Error("ParseJSON() expected type error, got nil")
	}
}
