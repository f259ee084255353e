package output

import (
	"bytes"
	"strings"
	"testing"
)

type point struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
}

type points []point

func (p points) Table(wide bool) *Table {
	t := NewTable("NAME")
	if wide {
		t.Headers = append(t.Headers, "X")
	}
	for _, pt := range p {
		row := []string{pt.Name}
		if wide {
			row = append(row, Float(pt.X))
		}
		t.AddRow(row...)
	}
	return t
}

type wrapped struct{ v any }

func (w wrapped) Table(bool) *Table { return NewTable("ONLY") }
func (w wrapped) Unwrap() any       { return w.v }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTableFormatter(t *testing.T) {
	data := points{{"a", 1.5}, {"b", 20}}

	tests := []struct {
		name    string
		f       *TableFormatter
		want    []string
		notWant []string
	}{
		{"narrow", &TableFormatter{}, []string{"NAME", "a", "b"}, []string{"1.5"}},
		{"wide", &TableFormatter{Wide: true}, []string{"NAME", "X", "1.5", "20"}, nil},
		{"no headers", &TableFormatter{NoHeaders: true}, []string{"a"}, []string{"NAME"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.f.Format(&buf, data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output %q missing %q", out, s)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(out, s) {
					t.Errorf("output %q contains %q", out, s)
				}
			}
		})
	}
}

func TestTableFormatter_FallbackJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, map[string]int{"sections": 3}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"sections": 3`) {
		t.Errorf("output = %q, want JSON fallback", buf.String())
	}
}

func TestTable_Alignment(t *testing.T) {
	table := NewTable("ID", "SPACE")
	table.AddRow("0", "LobbyWall")
	table.AddRow("12", "Desk")

	var buf bytes.Buffer
	if err := table.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	col := strings.Index(lines[0], "SPACE")
	if strings.Index(lines[1], "LobbyWall") != col || strings.Index(lines[2], "Desk") != col {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestJSONFormatter_Unwrap(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, wrapped{v: []int{1, 2}}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got := strings.Join(strings.Fields(buf.String()), ""); got != "[1,2]" {
		t.Errorf("output = %q, want [1,2]", got)
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, points{{"a", 1.5}}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, s := range []string{"- name: a", "x: 1.5"} {
		if !strings.Contains(out, s) {
			t.Errorf("output %q missing %q", out, s)
		}
	}
}

func TestCellHelpers(t *testing.T) {
	if got := Float(10); got != "10" {
		t.Errorf("Float(10) = %q, want 10", got)
	}
	if got := Float(0.25); got != "0.25" {
		t.Errorf("Float(0.25) = %q, want 0.25", got)
	}
	if got := Ints([]int{3, 1}); got != "3,1" {
		t.Errorf("Ints() = %q, want 3,1", got)
	}
	if got := Ints(nil); got != "-" {
		t.Errorf("Ints(nil) = %q, want -", got)
	}
	if got := Text(""); got != "-" {
		t.Errorf("Text(\"\") = %q, want -", got)
	}
}
