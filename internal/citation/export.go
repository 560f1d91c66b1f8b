package citation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Formats lists the accepted Export formats.
var Formats = []string{"bibtex", "ris", "json", "yaml"}

// Export serialises cites in the named format (case-insensitive).
func Export(cites []Citation, format string) (string, error) {
	switch strings.ToLower(format) {
	case "bibtex", "bib":
		return ExportBibTeX(cites), nil
	case "ris":
		return ExportRIS(cites), nil
	case "json":
		if cites == nil {
			cites = []Citation{}
		}
		b, err := json.MarshalIndent(cites, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal json: %w", err)
		}
		return string(b), nil
	case "yaml", "yml":
		b, err := yaml.Marshal(cites)
		if err != nil {
			return "", fmt.Errorf("marshal yaml: %w", err)
		}
		return string(b), nil
	}
	return "", fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(Formats, ", "))
}

// ExportBibTeX joins one @article entry per citation with blank lines.
// Colliding keys get a letter suffix.
func ExportBibTeX(cites []Citation) string {
	seen := make(map[string]int)
	entries := make([]string, 0, len(cites))
	for _, c := range cites {
		key := c.Key()
		if n := seen[key]; n > 0 {
			seen[key]++
			key += string(rune('a' + n - 1))
		} else {
			seen[key] = 1
		}
		entries = append(entries, c.BibTeX(key))
	}
	return strings.Join(entries, "\n\n")
}

// ExportRIS renders journal-article RIS records.
func ExportRIS(cites []Citation) string {
	entries := make([]string, 0, len(cites))
	for _, c := range cites {
		lines := []string{"TY  - JOUR", "AU  - " + c.Author}
		if c.Title != "" {
			lines = append(lines, "TI  - "+c.Title)
		}
		if c.Year != "" {
			lines = append(lines, "PY  - "+c.Year)
		}
		if c.Page > 0 {
			lines = append(lines, "SP  - "+strconv.Itoa(c.Page))
		}
		lines = append(lines, "ER  -")
		entries = append(entries, strings.Join(lines, "\n"))
	}
	return strings.Join(entries, "\n\n")
}
