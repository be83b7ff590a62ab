package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatJSON = "json"
)

// ParseFrontMatter splits a markdown document into its front matter, body and
// front matter format. YAML is fenced by ---, TOML by +++, and a document
// starting with { is a bare JSON object.
func ParseFrontMatter(content []byte) (map[string]interface{}, string, string, error) {
	str := normalizeLineEndings(string(content))

	for _, fence := range []struct {
		delim  string
		format string
	}{{"---", FormatYAML}, {"+++", FormatTOML}} {
		fm, body, ok := splitFence(str, fence.delim)
		if !ok {
			continue
		}
		var out map[string]interface{}
		var err error
		if fence.format == FormatYAML {
			err = yaml.Unmarshal([]byte(fm), &out)
		} else {
			err = toml.Unmarshal([]byte(fm), &out)
		}
		if err != nil {
			return nil, "", "", fmt.Errorf("parse %s front matter: %w", fence.format, err)
		}
		if out == nil {
			out = map[string]interface{}{}
		}
		return sanitizeFrontMatter(out), strings.TrimSpace(body), fence.format, nil
	}

	if strings.HasPrefix(strings.TrimSpace(str), "{") {
		var fm map[string]interface{}
		if err := json.Unmarshal([]byte(str), &fm); err != nil {
			return nil, "", "", fmt.Errorf("parse json front matter: %w", err)
		}
		body, _ := fm["body"].(string)
		delete(fm, "body")
		return fm, body, FormatJSON, nil
	}

	return nil, "", "", fmt.Errorf("unknown front matter format")
}

// splitFence expects the delimiter alone on the first line and again on a
// later line.
func splitFence(str, delim string) (string, string, bool) {
	if !strings.HasPrefix(str, delim+"\n") {
		return "", "", false
	}
	rest := str[len(delim)+1:]
	if strings.HasPrefix(rest, delim+"\n") || rest == delim {
		return "", strings.TrimPrefix(rest, delim), true
	}
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		return "", "", false
	}
	after := rest[end+1+len(delim):]
	if after != "" && after[0] != '\n' {
		return "", "", false
	}
	return rest[:end], after, true
}

// ConstructFileContent is the inverse of ParseFrontMatter.
func ConstructFileContent(fm map[string]interface{}, body string, format string) ([]byte, error) {
	normalized := canonicalizeFrontMatter(fm)
	if normalized == nil {
		normalized = map[string]interface{}{}
	}

	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(normalized); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
	case FormatTOML:
		buf.WriteString("+++\n")
		if err := toml.NewEncoder(&buf).Encode(normalized); err != nil {
			return nil, err
		}
		buf.WriteString("+++\n")
	case FormatJSON:
		if body != "" {
			normalized["body"] = body
		}
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(normalized); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// sanitizeFrontMatter turns the map[interface{}]interface{} values some yaml
// documents produce into map[string]interface{}.
func sanitizeFrontMatter(fm map[string]interface{}) map[string]interface{} {
	if fm == nil {
		return nil
	}
	sanitized := make(map[string]interface{}, len(fm))
	for k, v := range fm {
		sanitized[k] = sanitizeFrontMatterValue(v)
	}
	return sanitized
}

func sanitizeFrontMatterValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return sanitizeFrontMatter(v)
	case map[interface{}]interface{}:
		normalized := make(map[string]interface{}, len(v))
		for key, inner := range v {
			normalized[fmt.Sprint(key)] = sanitizeFrontMatterValue(inner)
		}
		return normalized
	case []interface{}:
		slice := make([]interface{}, len(v))
		for i := range v {
			slice[i] = sanitizeFrontMatterValue(v[i])
		}
		return slice
	default:
		return v
	}
}

// canonicalizeFrontMatter drops empty values and writes times as RFC 3339 so
// every format encodes them the same way.
func canonicalizeFrontMatter(fm map[string]interface{}) map[string]interface{} {
	if fm == nil {
		return nil
	}
	out := make(map[string]interface{}, len(fm))
	for k, v := range fm {
		if c := canonicalizeValue(v); c != nil {
			out[k] = c
		}
	}
	return out
}

func canonicalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return canonicalizeFrontMatter(v)
	case []interface{}:
		if len(v) == 0 {
			return nil
		}
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = canonicalizeValue(v[i])
		}
		return out
	case []string:
		if len(v) == 0 {
			return nil
		}
		return v
	case string:
		if v == "" {
			return nil
		}
		return v
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil
		}
		return v.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

func normalizeLineEndings(input string) string {
	return strings.ReplaceAll(input, "\r\n", "\n")
}
