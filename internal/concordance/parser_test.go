package concordance

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseBeginEndColumns(t *testing.T) {
	input := strings.Join([]string{
		JoinLine([]string{"Begin Bates", "End Bates"}),
		JoinLine([]string{"EFTA001", "EFTA002"}),
		"",
		JoinLine([]string{"EFTA003", "EFTA003"}),
	}, "\r\n")

	file, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !reflect.DeepEqual(file.Columns, []string{"Begin Bates", "End Bates"}) {
		t.Fatalf("columns = %q", file.Columns)
	}
	if len(file.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(file.Records))
	}
	if got := file.Records[0].Get("Begin Bates"); got != "EFTA001" {
		t.Fatalf("begin = %q", got)
	}
	if got := file.Records[1].Get("End Bates"); got != "EFTA003" {
		t.Fatalf("end = %q", got)
	}
}

func TestParsePadsTruncatedRecords(t *testing.T) {
	input := JoinLine([]string{"Begin Bates", "End Bates", "Custodian"}) + "\n" +
		JoinLine([]string{"EFTA001"}) + "\n"

	file, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(file.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(file.Records))
	}
	rec := file.Records[0]
	want := map[string]string{"Begin Bates": "EFTA001", "End Bates": "", "Custodian": ""}
	if !reflect.DeepEqual(rec.Fields(), want) {
		t.Fatalf("fields = %v, want %v", rec.Fields(), want)
	}
	if len(rec.Values()) != 3 {
		t.Fatalf("values = %d, want 3", len(rec.Values()))
	}
}

func TestParseLongLine(t *testing.T) {
	text := strings.Repeat("a", 20<<20)
	input := JoinLine([]string{"Begin Bates", "Text"}) + "\r\n" +
		JoinLine([]string{"EFTA001", text}) + "\r\n" +
		JoinLine([]string{"EFTA002", "short"})

	file, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(file.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(file.Records))
	}
	if got := len(file.Records[0].Get("Text")); got != len(text) {
		t.Fatalf("text length = %d, want %d", got, len(text))
	}
	if got := file.Records[1].Get("Begin Bates"); got != "EFTA002" {
		t.Fatalf("begin = %q, want EFTA002", got)
	}
}

func TestParseLatin1(t *testing.T) {
	// 0xFE is the thorn in ISO-8859-1.
	raw := "\xfeBegin Bates\xfe\x14\xfeEnd Bates\xfe\n\xfeEFTA1\xfe\x14\xfeEFTA2\xfe\n"
	file, err := Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(file.Columns) != 2 || file.Columns[1] != "End Bates" {
		t.Fatalf("columns = %q", file.Columns)
	}
	if got := file.Records[0].Get("End Bates"); got != "EFTA2" {
		t.Fatalf("end = %q", got)
	}
}

func TestParseEmpty(t *testing.T) {
	file, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(file.Columns) != 0 || len(file.Records) != 0 {
		t.Fatalf("file = %+v, want empty", file)
	}
}

func TestGetUnknownColumn(t *testing.T) {
	rec := NewRecord([]string{"A"}, []string{"1", "2"})
	if rec.Get("B") != "" {
		t.Fatal("expected empty value for undeclared column")
	}
	if len(rec.Values()) != 1 {
		t.Fatalf("extra values kept: %q", rec.Values())
	}
}
