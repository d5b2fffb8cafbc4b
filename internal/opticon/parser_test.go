package opticon

import (
	"fmt"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		outcome Outcome
		want    PageRecord
	}{
		{
			name:    "document start",
			line:    `EFTA001,VOL1,IMAGES\A\1.TIF,Y,,,1`,
			outcome: Parsed,
			want:    PageRecord{Bates: "EFTA001", Volume: "VOL1", ImagePath: "IMAGES/A/1.TIF", DocumentBreak: true, PageCountHint: 1},
		},
		{
			name:    "continuation page",
			line:    `EFTA002,VOL1,IMAGES\A\2.TIF,,,,`,
			outcome: Parsed,
			want:    PageRecord{Bates: "EFTA002", Volume: "VOL1", ImagePath: "IMAGES/A/2.TIF", PageCountHint: 1},
		},
		{
			name:    "quoted field with embedded comma",
			line:    `"EFTA003","VOL1","IMAGES\A,B\3.TIF","Y","","","4"`,
			outcome: Parsed,
			want:    PageRecord{Bates: "EFTA003", Volume: "VOL1", ImagePath: "IMAGES/A,B/3.TIF", DocumentBreak: true, PageCountHint: 4},
		},
		{
			name:    "four fields only",
			line:    `EFTA004,VOL1,IMAGES\4.TIF,Y`,
			outcome: Parsed,
			want:    PageRecord{Bates: "EFTA004", Volume: "VOL1", ImagePath: "IMAGES/4.TIF", DocumentBreak: true, PageCountHint: 1},
		},
		{
			name:    "non numeric page count",
			line:    `EFTA005,VOL1,IMAGES\5.TIF,,,,abc`,
			outcome: Parsed,
			want:    PageRecord{Bates: "EFTA005", Volume: "VOL1", ImagePath: "IMAGES/5.TIF", PageCountHint: 1},
		},
		{
			name:    "lowercase flag is not a break",
			line:    `EFTA006,VOL1,IMAGES\6.TIF,y,,,1`,
			outcome: Parsed,
			want:    PageRecord{Bates: "EFTA006", Volume: "VOL1", ImagePath: "IMAGES/6.TIF", PageCountHint: 1},
		},
		{name: "blank", line: "   ", outcome: Blank},
		{name: "too few fields", line: "EFTA007,VOL1,IMAGES\\7.TIF", outcome: Rejected},
		{name: "quoted comma hides separator", line: `"EFTA008,VOL1",IMAGES\8.TIF,Y`, outcome: Rejected},
		{name: "missing bates", line: `,VOL1,IMAGES\9.TIF,Y`, outcome: Rejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := ParseLine(tt.line)
			if outcome != tt.outcome {
				t.Fatalf("outcome = %s, want %s", outcome, tt.outcome)
			}
			if got != tt.want {
				t.Fatalf("record = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSkipsCorruptLines(t *testing.T) {
	corrupt := map[int]bool{10: true, 200: true, 450: true, 777: true, 999: true}
	var b strings.Builder
	for i := 0; i < 1000; i++ {
		if corrupt[i] {
			fmt.Fprintf(&b, "EFTA%05d,VOL1\n", i)
			continue
		}
		flag := ""
		if i%3 == 0 {
			flag = "Y"
		}
		fmt.Fprintf(&b, "EFTA%05d,VOL1,IMAGES\\%05d.TIF,%s,,,1\n", i, i, flag)
	}

	result, err := Parse(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(result.Pages) != 995 {
		t.Fatalf("pages = %d, want 995", len(result.Pages))
	}
	if result.Errors != 5 {
		t.Fatalf("errors = %d, want 5", result.Errors)
	}
	if len(result.Rejected) != 5 {
		t.Fatalf("rejected sample = %d, want 5", len(result.Rejected))
	}
	if result.Rejected[0].Line != 11 {
		t.Fatalf("first rejected line = %d, want 11", result.Rejected[0].Line)
	}

	prev := -1
	for _, page := range result.Pages {
		var n int
		if _, err := fmt.Sscanf(page.Bates, "EFTA%05d", &n); err != nil {
			t.Fatalf("unexpected bates %q", page.Bates)
		}
		if corrupt[n] {
			t.Fatalf("corrupt line %d was parsed", n)
		}
		if n <= prev {
			t.Fatalf("pages out of order: %d after %d", n, prev)
		}
		prev = n
	}
}

func TestParseIgnoresBlankLinesAndBOM(t *testing.T) {
	input := "\ufeffEFTA001,VOL1,IMAGES\\1.TIF,Y,,,1\r\n\r\n   \nEFTA002,VOL1,IMAGES\\2.TIF,,,,1\n"
	result, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if result.Errors != 0 {
		t.Fatalf("errors = %d, want 0", result.Errors)
	}
	if len(result.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(result.Pages))
	}
	if result.Pages[0].Bates != "EFTA001" {
		t.Fatalf("BOM not stripped: %q", result.Pages[0].Bates)
	}
}

func TestParseRejectsOverlongLine(t *testing.T) {
	input := "EFTA001,VOL1,IMAGES\\1.TIF,Y,,,1\r\n" +
		strings.Repeat("x", 2<<20) + "\r\n" +
		"EFTA002,VOL1,IMAGES\\2.TIF,,,,1"
	result, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(result.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(result.Pages))
	}
	if result.Errors != 1 || len(result.Rejected) != 1 {
		t.Fatalf("errors = %d rejected = %d, want 1", result.Errors, len(result.Rejected))
	}
	rejected := result.Rejected[0]
	if rejected.Line != 2 || !strings.Contains(rejected.Reason, "exceeds") {
		t.Fatalf("unexpected rejection %+v", rejected)
	}
	if result.Pages[1].Bates != "EFTA002" {
		t.Fatalf("last page = %q, want EFTA002", result.Pages[1].Bates)
	}
}

func TestNewPageRecordRequiresBates(t *testing.T) {
	if _, err := NewPageRecord("", "VOL1", "a.tif", true, 1); err != ErrMissingBates {
		t.Fatalf("err = %v, want ErrMissingBates", err)
	}
}
