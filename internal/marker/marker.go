// Package marker finds ACADWRITE directive regions in markdown and splices
// replacement text back over them.
//
//	<!-- ACADWRITE: evidence type=vector -->
//	Existing paragraph that needs support.
//	<!-- END ACADWRITE -->
package marker

import "strings"

// Operation is the closed set of directive operations.
type Operation string

const (
	OpExpand     Operation = "expand"
	OpEvidence   Operation = "evidence"
	OpCitations  Operation = "citations"
	OpClarity    Operation = "clarity"
	OpContradict Operation = "contradict"
)

// Operations lists every supported operation.
var Operations = []Operation{OpExpand, OpEvidence, OpCitations, OpClarity, OpContradict}

// ParseOperation matches token case-insensitively. Unknown tokens map to
// OpExpand and ok is false.
func ParseOperation(token string) (op Operation, ok bool) {
	t := Operation(strings.ToLower(strings.TrimSpace(token)))
	for _, known := range Operations {
		if t == known {
			return known, true
		}
	}
	return OpExpand, false
}

// RequiresLLM reports whether the operation needs a completion service.
func (o Operation) RequiresLLM() bool {
	return o == OpClarity || o == OpContradict
}

// Param is one key=value token from an opening directive.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Params keeps directive parameters in the order they were written.
type Params []Param

// Get returns the first value stored under key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Lookup returns the value of the first key present, or fallback.
func (p Params) Lookup(fallback string, keys ...string) string {
	for _, k := range keys {
		if v, ok := p.Get(k); ok && v != "" {
			return v
		}
	}
	return fallback
}

// Map flattens params; later duplicates do not override earlier keys.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, kv := range p {
		if _, seen := m[kv.Key]; !seen {
			m[kv.Key] = kv.Value
		}
	}
	return m
}

// Marker is a complete directive region. StartLine and EndLine are the
// 0-indexed lines of the opening and closing comments; EndLine is always
// greater than StartLine.
type Marker struct {
	Operation    Operation `json:"operation"`
	RawOperation string    `json:"raw_operation"`
	StartLine    int       `json:"start_line"`
	EndLine      int       `json:"end_line"`
	Content      string    `json:"content"`
	Context      string    `json:"context"`
	Heading      string    `json:"heading"`
	HeadingLevel int       `json:"heading_level"`
	Params       Params    `json:"params"`
}

// Remapped reports whether an unrecognised operation token was replaced
// with OpExpand.
func (m Marker) Remapped() bool {
	return !strings.EqualFold(m.RawOperation, string(m.Operation))
}

// Bullets returns the text of bullet lines in the marker content.
func (m Marker) Bullets() []string {
	var out []string
	for _, line := range strings.Split(m.Content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "+") {
			if topic := strings.TrimSpace(strings.TrimLeft(line, "-*+")); topic != "" {
				out = append(out, topic)
			}
		}
	}
	return out
}
