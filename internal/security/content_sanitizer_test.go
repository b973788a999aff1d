package security

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Acme Corp", "Acme Corp"},
		{"前後の空白を除去", "  Acme Corp \n", "Acme Corp"},
		{"空文字列", "", ""},
		{"空白のみは空文字列", "   ", ""},
		{"タグを除去", "<b>Acme</b> Corp", "Acme Corp"},
		{"scriptは内容ごと除去", "<script>alert(1)</script>Acme", "Acme"},
		{"styleは内容ごと除去", "<style>body{}</style>Acme", "Acme"},
		{"イベント属性付きタグを除去", `<img src=x onerror="alert(1)">Acme`, "Acme"},
		{"アンパサンドは保持", "Smith & Sons", "Smith & Sons"},
		{"日本語", "<p>株式会社テスト</p>", "株式会社テスト"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitizeText_XSSPayloads は代表的なXSSペイロードからタグが残らないことを検証する。
func TestSanitizeText_XSSPayloads(t *testing.T) {
	sanitizer := NewTextSanitizer()

	payloads := []string{
		`<svg onload=alert(1)>`,
		`<a href="javascript:alert(1)">click</a>`,
		`<iframe src="https://evil.example.com"></iframe>`,
		`<div style="background:url(javascript:alert(1))">x</div>`,
	}
	for _, p := range payloads {
		got := sanitizer.SanitizeText(p)
		if strings.Contains(got, "<") && strings.Contains(got, ">") {
			t.Errorf("SanitizeText(%q) = %q, still contains markup", p, got)
		}
		if strings.Contains(strings.ToLower(got), "javascript:") {
			t.Errorf("SanitizeText(%q) = %q, still contains javascript URL", p, got)
		}
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	input := "<em>Acme</em> & Co"

	first := sanitizer.SanitizeText(input)
	second := sanitizer.SanitizeText(first)
	if first != second {
		t.Errorf("not idempotent: %q -> %q", first, second)
	}
}

func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizer = NewTextSanitizer()
}
