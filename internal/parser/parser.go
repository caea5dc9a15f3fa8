// Package parser extracts the frontmatter and section structure of a
// generated daily note.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a daily note.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Date        string
	Topics      []string
	People      []string
	Sections    []string
	Title       string
}

// Parse extracts frontmatter, body, topics, people and "## " section headings
// from raw Markdown bytes. Parse never fails on malformed notes: content it
// cannot interpret is treated as body.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(unfence(data))
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Date:        stringField(fm, "date"),
		Topics:      listField(fm, "topics"),
		People:      listField(fm, "people"),
		Sections:    extractSections(body),
		Title:       deriveTitle(fm, body),
	}, nil
}

// unfence drops a ```markdown wrapper that some models put around the note.
func unfence(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("```")) || !bytes.HasSuffix(trimmed, []byte("```")) {
		return data
	}
	nl := bytes.IndexByte(trimmed, '\n')
	if nl < 0 {
		return data
	}
	inner := trimmed[nl+1 : len(trimmed)-3]
	return append(bytes.TrimRight(inner, "\n"), '\n')
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data), nil
	}

	return fm, body, nil
}

// stringField renders a scalar frontmatter value. yaml.v3 decodes an
// unquoted 2024-05-01 as time.Time, so dates are formatted back.
func stringField(fm map[string]interface{}, key string) string {
	switch v := fm[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}

// listField accepts either a YAML list or a comma-separated string and
// returns trimmed, de-duplicated, non-empty entries.
func listField(fm map[string]interface{}, key string) []string {
	var raw []string
	switch v := fm[key].(type) {
	case []interface{}:
		for _, item := range v {
			if item != nil {
				raw = append(raw, fmt.Sprint(item))
			}
		}
	case string:
		raw = strings.Split(v, ",")
	}

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// extractSections returns the "## " headings in order of appearance.
func extractSections(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			if h := strings.TrimSpace(trimmed[3:]); h != "" {
				out = append(out, h)
			}
		}
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if s := stringField(fm, "title"); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
