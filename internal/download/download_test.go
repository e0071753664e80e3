package download

import (
	"testing"
	"time"

	"github.com/sakif/code-share/internal/model"
)

func TestFilename(t *testing.T) {
	fixed := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		title string
		lang  model.Language
		want  string
	}{
		{
			name:  "title plus language extension",
			title: "hello world",
			lang:  model.LangJavaScript,
			want:  "hello world.js",
		},
		{
			name:  "empty title falls back to date",
			title: "",
			lang:  model.LangGo,
			want:  "2026-09-01-code.go",
		},
		{
			name:  "whitespace title falls back to date",
			title: "   ",
			lang:  model.LangPython,
			want:  "2026-09-01-code.py",
		},
		{
			name:  "path separators replaced",
			title: "a/b\\c",
			lang:  model.LangRust,
			want:  "a-b-c.rs",
		},
		{
			name:  "quotes stripped",
			title: `my "great" snippet`,
			lang:  model.LangC,
			want:  "my great snippet.c",
		},
		{
			name:  "unknown language falls back to txt",
			title: "legacy",
			lang:  model.Language("brainfuck"),
			want:  "legacy.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &model.Snippet{Title: tt.title, Language: tt.lang}
			if got := Filename(s, fixed); got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentDisposition(t *testing.T) {
	got := ContentDisposition("hello.js")
	want := `attachment; filename="hello.js"`
	if got != want {
		t.Errorf("ContentDisposition() = %q, want %q", got, want)
	}
}
