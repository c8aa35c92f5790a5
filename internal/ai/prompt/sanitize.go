package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Bounds applied to event metadata before it reaches a prompt.
const (
	MaxMetadataKeyLen   = 50
	MaxMetadataValueLen = 500
)

// Field is one sanitized metadata entry.
type Field struct {
	Key   string
	Value string
}

// SanitizeMetadata flattens metadata into sorted key/value pairs with line
// breaks removed, keys cut to 50 and values to 500 characters. Entries whose
// key is empty after cleaning are dropped.
func SanitizeMetadata(meta map[string]any) []Field {
	fields := make([]Field, 0, len(meta))
	for k, v := range meta {
		key := truncate(singleLine(k), MaxMetadataKeyLen)
		if key == "" {
			continue
		}
		fields = append(fields, Field{Key: key, Value: truncate(singleLine(stringify(v)), MaxMetadataValueLen)})
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Key == fields[j].Key {
			return fields[i].Value < fields[j].Value
		}
		return fields[i].Key < fields[j].Key
	})
	return fields
}

// FormatFields renders fields as a "- key: value" list.
func FormatFields(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.Key, f.Value)
	}
	return b.String()
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool, int, int32, int64, float32, float64, uint, uint32, uint64:
		return fmt.Sprint(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\u2028", " ", "\u2029", " ")

func singleLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
