package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
)

type renderable struct {
	Name string `json:"name"`
}

func (r renderable) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "name: %s\n", r.Name)
	return err
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrint(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Print(&buf, FormatJSON, renderable{Name: "free"}); err != nil {
			t.Fatalf("Print() error = %v", err)
		}
		var got renderable
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if got.Name != "free" {
			t.Errorf("name = %q, want free", got.Name)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Errorf("expected indented JSON, got %q", buf.String())
		}
	})

	t.Run("text renderer", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Print(&buf, FormatText, renderable{Name: "pro"}); err != nil {
			t.Fatalf("Print() error = %v", err)
		}
		if buf.String() != "name: pro\n" {
			t.Errorf("Print() = %q, want %q", buf.String(), "name: pro\n")
		}
	})

	t.Run("text fallback", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Print(&buf, FormatText, 42); err != nil {
			t.Fatalf("Print() error = %v", err)
		}
		if buf.String() != "42\n" {
			t.Errorf("Print() = %q, want %q", buf.String(), "42\n")
		}
	})
}

func TestNewTable(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTable(&buf)
	fmt.Fprintln(tw, "NAME\tSTATE")
	fmt.Fprintln(tw, "openai\tclosed")
	if err := tw.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	want := "NAME    STATE\nopenai  closed\n"
	if buf.String() != want {
		t.Errorf("table = %q, want %q", buf.String(), want)
	}
}
