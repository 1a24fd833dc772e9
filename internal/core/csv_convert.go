package core

// csv_convert.go turns the free-form text returned by the profiling endpoint
// into CSV for download.
//
// Two paths:
//   - JSON array fast path: a non-empty array becomes a header row (keys of
//     element 0) followed by one row per element. Cells are joined with ","
//     without quoting, so values containing commas, quotes or newlines shift
//     columns.
//   - Line fallback: anything else is split on "\n" and every line becomes a
//     single quoted cell with embedded quotes doubled. Always valid CSV.

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// NoDataText is returned for blank input.
const NoDataText = "No data available"

// objectPlaceholder is how a nested object renders inside a joined row.
const objectPlaceholder = "[object Object]"

// errNotRecords aborts the JSON array path; the caller falls back to lines.
var errNotRecords = errors.New("not a non-empty array of records")

// ConvertToCSV converts response text to CSV. It never fails: input that is
// not a non-empty JSON array is converted line by line.
func ConvertToCSV(text string) string {
	if strings.TrimFunc(text, isTrimSpace) == "" {
		return NoDataText
	}

	if out, err := recordsToCSV(text); err == nil {
		return out
	}

	return linesToCSV(text)
}

// isTrimSpace reports whether r is stripped by the blank-input check.
// Matches ECMAScript String.prototype.trim: Unicode spaces, line terminators
// and the byte order mark, but not NEL (U+0085).
func isTrimSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// linesToCSV wraps each line in quotes, doubling embedded quotes.
func linesToCSV(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = `"` + strings.ReplaceAll(line, `"`, `""`) + `"`
	}
	return strings.Join(lines, "\n")
}

// recordsToCSV implements the JSON array path.
func recordsToCSV(text string) (string, error) {
	data := []byte(text)
	if !json.Valid(data) {
		return "", errNotRecords
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil || len(elems) == 0 {
		// Valid JSON that is not an array (or is null / empty).
		return "", errNotRecords
	}

	rows := make([]string, 0, len(elems))
	var header string
	for i, raw := range elems {
		keys, values, err := enumerate(raw)
		if err != nil {
			return "", err
		}
		if i == 0 {
			header = strings.Join(keys, ",")
		}
		cells := make([]string, len(values))
		for j, v := range values {
			cells[j] = joinString(v)
		}
		rows = append(rows, strings.Join(cells, ","))
	}

	return header + "\n" + strings.Join(rows, "\n"), nil
}

// enumerate returns the own enumerable keys and values of one array element. Objects yield their members, arrays and strings yield
// index keys, numbers and booleans yield nothing, and null cannot be
// enumerated.
func enumerate(raw json.RawMessage) ([]string, []any, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil, errNotRecords
	}

	switch trimmed[0] {
	case '{':
		return orderedMembers(trimmed)
	case 'n':
		return nil, nil, errNotRecords
	case '[':
		var items []any
		if err := decodeNumbers(trimmed, &items); err != nil {
			return nil, nil, err
		}
		return indexKeys(len(items)), items, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, nil, err
		}
		units := utf16.Encode([]rune(s))
		values := make([]any, len(units))
		for i, u := range units {
			// A lone surrogate half cannot be encoded and becomes U+FFFD.
			values[i] = string(rune(u))
		}
		return indexKeys(len(units)), values, nil
	default:
		// number, true, false
		return nil, nil, nil
	}
}

// orderedMembers decodes a JSON object keeping member order. A repeated key
// keeps its first position and takes the last value.
func orderedMembers(data []byte) ([]string, []any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil { // opening brace
		return nil, nil, err
	}

	var keys []string
	var values []any
	pos := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, errNotRecords
		}

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}

		if i, seen := pos[key]; seen {
			values[i] = v
			continue
		}
		pos[key] = len(keys)
		keys = append(keys, key)
		values = append(values, v)
	}

	if _, err := dec.Token(); err != nil && err != io.EOF { // closing brace
		return nil, nil, err
	}
	keys, values = indexKeysFirst(keys, values)
	return keys, values, nil
}

// indexKeysFirst moves array-index keys ahead of the others in ascending
// numeric order, matching how JavaScript enumerates an object's own keys.
// The remaining keys keep document order.
func indexKeysFirst(keys []string, values []any) ([]string, []any) {
	type member struct {
		key   string
		value any
		index uint64
	}
	var indexed, named []member
	for i, k := range keys {
		if n, ok := arrayIndex(k); ok {
			indexed = append(indexed, member{k, values[i], n})
		} else {
			named = append(named, member{key: k, value: values[i]})
		}
	}
	if len(indexed) == 0 {
		return keys, values
	}
	slices.SortFunc(indexed, func(a, b member) int { return cmp.Compare(a.index, b.index) })

	outKeys := make([]string, 0, len(keys))
	outValues := make([]any, 0, len(values))
	for _, m := range append(indexed, named...) {
		outKeys = append(outKeys, m.key)
		outValues = append(outValues, m.value)
	}
	return outKeys, outValues
}

// arrayIndex reports whether key is a canonical array index: a decimal
// integer without leading zeros below 2^32-1.
func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil || n >= math.MaxUint32 {
		return 0, false
	}
	return n, true
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func indexKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// joinString renders a decoded value the way an array join does:
// null is empty, nested arrays are joined with commas and nested objects
// collapse to a fixed placeholder.
func joinString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case json.Number:
		return formatNumber(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = joinString(item)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return objectPlaceholder
	default:
		return ""
	}
}

// formatNumber prints a JSON number in shortest round-trip form, switching
// to exponent notation below 1e-6 and from 1e21 upwards.
func formatNumber(n json.Number) string {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil && !math.IsInf(f, 0) {
		return string(n)
	}

	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}
