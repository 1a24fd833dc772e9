package core

import (
	"encoding/csv"
	"strings"
	"testing"
)

// ============================================================================
// ConvertToCSV Tests
// ============================================================================

func TestConvertToCSV_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "uniform records",
			input: `[{"a":1,"b":2},{"a":3,"b":4}]`,
			want:  "a,b\n1,2\n3,4",
		},
		{
			name:  "plain text",
			input: "not json",
			want:  `"not json"`,
		},
		{
			name:  "quotes doubled per line",
			input: "line1\nhe said \"hi\"\nline3",
			want:  "\"line1\"\n\"he said \"\"hi\"\"\"\n\"line3\"",
		},
		{
			name:  "empty input",
			input: "",
			want:  NoDataText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertToCSV(tt.input); got != tt.want {
				t.Errorf("ConvertToCSV(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertToCSV_Blank(t *testing.T) {
	inputs := []string{
		" ",
		"   \n\t  ",
		"\r\n",
		"\u00a0\u2003",
		"\uFEFF",
		"\u2028\u2029",
	}

	for _, in := range inputs {
		if got := ConvertToCSV(in); got != NoDataText {
			t.Errorf("ConvertToCSV(%q) = %q, want %q", in, got, NoDataText)
		}
	}

	// NEL is not stripped, so the text is converted rather than reported empty.
	if got := ConvertToCSV("\u0085"); got != "\"\u0085\"" {
		t.Errorf("ConvertToCSV(NEL) = %q", got)
	}
}

func TestConvertToCSV_RecordPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single record",
			input: `[{"rule":"amount > 0","severity":"high"}]`,
			want:  "rule,severity\namount > 0,high",
		},
		{
			name:  "named keys keep document order",
			input: `[{"zeta":1,"alpha":2}]`,
			want:  "zeta,alpha\n1,2",
		},
		{
			name:  "integer keys enumerate first in numeric order",
			input: `[{"b":1,"2":"x","1":"y"}]`,
			want:  "1,2,b\ny,x,1",
		},
		{
			name:  "non-canonical integer keys stay in place",
			input: `[{"b":1,"01":"x","10":"y","4294967295":"z","-1":"w"}]`,
			want:  "10,b,01,4294967295,-1\ny,1,x,z,w",
		},
		{
			name:  "each row uses its own key order",
			input: `[{"a":1,"b":2},{"b":3,"a":4}]`,
			want:  "a,b\n1,2\n3,4",
		},
		{
			name:  "ragged rows are not aligned",
			input: `[{"a":1,"b":2},{"c":3}]`,
			want:  "a,b\n1,2\n3",
		},
		{
			name:  "values are not quoted",
			input: `[{"a":"x,y","b":"he said \"hi\""}]`,
			want:  "a,b\nx,y,he said \"hi\"",
		},
		{
			name:  "nested values",
			input: `[{"a":[1,[2,null]],"b":{"c":1},"d":null,"e":true,"f":false}]`,
			want:  "a,b,d,e,f\n1,2,,[object Object],,true,false",
		},
		{
			name:  "number formatting",
			input: `[{"i":100,"f":1.0,"big":1e21,"tiny":1.5e-7,"edge":0.000001,"neg":-0,"frac":-2.50}]`,
			want:  "i,f,big,tiny,edge,neg,frac\n100,1,1e+21,1.5e-7,0.000001,0,-2.5",
		},
		{
			name:  "overflowing number",
			input: `[{"x":1e400,"y":-1e400}]`,
			want:  "x,y\nInfinity,-Infinity",
		},
		{
			name:  "duplicate key keeps first position and last value",
			input: `[{"a":1,"b":2,"a":3}]`,
			want:  "a,b\n3,2",
		},
		{
			name:  "primitive elements have no keys",
			input: `[1,true]`,
			want:  "\n\n",
		},
		{
			name:  "string element enumerates characters",
			input: `["ab"]`,
			want:  "0,1\na,b",
		},
		{
			name:  "string element splits into UTF-16 units",
			input: `["\u00e9\ud83d\ude00"]`,
			want:  "0,1,2\n\u00e9,\ufffd,\ufffd",
		},
		{
			name:  "array element enumerates indices",
			input: `[[7,8]]`,
			want:  "0,1\n7,8",
		},
		{
			name:  "surrounding whitespace",
			input: " [ {\"a\": 1} ]\n",
			want:  "a\n1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertToCSV(tt.input); got != tt.want {
				t.Errorf("ConvertToCSV(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertToCSV_FallbackPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty array", `[]`, `"[]"`},
		{"object", `{"a":1}`, `"{""a"":1}"`},
		{"null", `null`, `"null"`},
		{"number", `42`, `"42"`},
		{"string", `"hi"`, `"""hi"""`},
		{"null element", `[null]`, `"[null]"`},
		{"null after records", `[{"a":1},null]`, `"[{""a"":1},null]"`},
		{"trailing garbage", `[{"a":1}] x`, `"[{""a"":1}] x"`},
		{"truncated", `[{"a":1}`, `"[{""a"":1}"`},
		{"trailing newline", "x\n", "\"x\"\n\"\""},
		{"carriage returns stay inside cells", "a\r\nb", "\"a\r\"\n\"b\""},
		{"embedded commas", "a, b, c", `"a, b, c"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertToCSV(tt.input); got != tt.want {
				t.Errorf("ConvertToCSV(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// The fallback must always parse back as one single-cell record per line.
func TestConvertToCSV_FallbackIsValidCSV(t *testing.T) {
	inputs := []string{
		"1. Amount must be positive\n2. Date uses \"YYYY-MM-DD\"\n3. ID, unique",
		`"""`,
		"a\"b\"c\n,,,\n\"",
		"**Rule 1**: total_assets = liabilities + equity",
	}

	for _, in := range inputs {
		out := ConvertToCSV(in)
		r := csv.NewReader(strings.NewReader(out))
		r.FieldsPerRecord = 1

		records, err := r.ReadAll()
		if err != nil {
			t.Fatalf("output of %q is not valid CSV: %v\n%s", in, err, out)
		}

		lines := strings.Split(in, "\n")
		if len(records) != len(lines) {
			t.Fatalf("got %d records for %d lines", len(records), len(lines))
		}
		for i, rec := range records {
			if rec[0] != lines[i] {
				t.Errorf("record %d = %q, want %q", i, rec[0], lines[i])
			}
		}
	}
}

func TestConvertToCSV_DeepNesting(t *testing.T) {
	deep := strings.Repeat("[", 20000) + strings.Repeat("]", 20000)
	out := ConvertToCSV(deep)
	if !strings.HasPrefix(out, `"[[[`) {
		t.Errorf("deeply nested input should fall back to line mode, got prefix %q", out[:10])
	}

	nested := "[" + strings.Repeat(`{"a":`, 500) + "1" + strings.Repeat("}", 500) + "]"
	if got := ConvertToCSV(nested); got != "a\n[object Object]" {
		t.Errorf("nested objects = %q", got)
	}
}

func FuzzConvertToCSV(f *testing.F) {
	seeds := []string{
		"",
		"not json",
		`[{"a":1,"b":2},{"a":3,"b":4}]`,
		`[null]`,
		`[{"a":[{"b":null}]}]`,
		"line1\nhe said \"hi\"\nline3",
		"\xff\xfe",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, in string) {
		out := ConvertToCSV(in)
		if out == "" {
			t.Errorf("ConvertToCSV(%q) returned empty output", in)
		}
	})
}
