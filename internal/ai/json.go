package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object found in reply")

var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// extractStrategy returns a candidate JSON object or false.
type extractStrategy func(raw string) (map[string]any, bool)

// objectStrategies run in order; each is total and side-effect free.
var objectStrategies = []extractStrategy{
	directObject,
	fencedObject,
	braceSpanObject,
	prefixObject,
}

// ExtractObject pulls the first JSON object out of a model reply that may be wrapped in
// prose or code fences, or followed by trailing text.
func ExtractObject(raw string) (map[string]any, error) {
	for _, strategy := range objectStrategies {
		if obj, ok := strategy(raw); ok {
			return obj, nil
		}
	}
	return nil, ErrNoJSON
}

// ExtractValue is ExtractObject for replies that may also be a top-level JSON list.
// A list wins when its "[" comes before the first "{" of the same candidate.
func ExtractValue(raw string) (any, error) {
	var candidates []string
	for _, m := range fencedBlockRegex.FindAllStringSubmatch(raw, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, raw)

	for _, c := range candidates {
		lb, ob := strings.Index(c, "["), strings.Index(c, "{")
		if lb < 0 || (ob >= 0 && ob < lb) {
			continue
		}
		var list []any
		if decodePrefix(c[lb:], &list) {
			return list, nil
		}
	}

	obj, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func directObject(raw string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func fencedObject(raw string) (map[string]any, bool) {
	for _, m := range fencedBlockRegex.FindAllStringSubmatch(raw, -1) {
		body := m[1]
		i := strings.Index(body, "{")
		if i < 0 {
			continue
		}
		var obj map[string]any
		if decodePrefix(body[i:], &obj) && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

func braceSpanObject(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// prefixObject decodes the first complete value starting at the first "{" and
// ignores whatever follows it.
func prefixObject(raw string) (map[string]any, bool) {
	rest := raw
	for {
		i := strings.Index(rest, "{")
		if i < 0 {
			return nil, false
		}
		var obj map[string]any
		if decodePrefix(rest[i:], &obj) && obj != nil {
			return obj, true
		}
		rest = rest[i+1:]
	}
}

func decodePrefix(s string, v any) bool {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	return dec.Decode(v) == nil
}

// String returns obj[key] for the first key present that holds a string.
func String(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

// Int reads a loosely typed integer: JSON numbers, numeric strings and floats (truncated).
func Int(obj map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		if n, ok := toInt(obj[k]); ok {
			return n, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		return toInt(json.Number(strings.TrimSpace(n)))
	}
	return 0, false
}
