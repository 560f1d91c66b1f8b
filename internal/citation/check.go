package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	footnoteDefRe = regexp.MustCompile(`\[\^(\d+)\]:\s*([^\n]+)`)
	authorYearRe  = regexp.MustCompile(`([^,(]+?)[\s,]+\((\d{4}|n\.d\.)\)`)
)

// ExtractFromText collects inline tags (numbered from 1 in order) followed
// by footnote definitions (keeping their own numbers). Definitions with no
// recognisable "Author (Year)" are skipped.
func ExtractFromText(text string) []Citation {
	var cites []Citation
	for i, tag := range inlineRe.FindAllString(text, -1) {
		c := parseInline(tag)
		c.ID = i + 1
		cites = append(cites, c)
	}

	for _, m := range footnoteDefRe.FindAllStringSubmatch(text, -1) {
		full := strings.TrimSpace(m[2])
		ay := authorYearRe.FindStringSubmatch(full)
		if ay == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])
		cites = append(cites, Citation{
			ID:           id,
			Author:       strings.TrimSpace(ay[1]),
			Year:         ay[2],
			Page:         PageFromText(full),
			FullCitation: full,
		})
	}
	return cites
}

// CheckResult summarises citation problems in a document.
type CheckResult struct {
	Total        int      `json:"total_citations"`
	Valid        int      `json:"valid_citations"`
	Invalid      []string `json:"invalid_citations"`
	MissingPages []string `json:"missing_pages"`
	Warnings     []string `json:"warnings"`
}

// OK reports whether no citation is invalid.
func (r CheckResult) OK() bool { return len(r.Invalid) == 0 }

// Check validates every citation in text. Missing pages are warnings
// unless strict, in which case they make the citation invalid.
func Check(text string, strict bool) CheckResult {
	cites := ExtractFromText(text)
	res := CheckResult{
		Total:        len(cites),
		Invalid:      []string{},
		MissingPages: []string{},
		Warnings:     []string{},
	}

	for _, c := range cites {
		bad := false
		fail := func(msg string) {
			res.Invalid = append(res.Invalid, msg)
			bad = true
		}

		if strings.TrimSpace(c.Author) == "" {
			fail(fmt.Sprintf("Citation %d missing author", c.ID))
		}
		if strings.TrimSpace(c.Year) == "" {
			fail(fmt.Sprintf("Citation %d missing year", c.ID))
		}
		if c.Page == 0 {
			msg := fmt.Sprintf("Citation %d (%s, %s) missing page number", c.ID, c.Author, c.Year)
			if strict {
				fail(msg)
			} else {
				res.MissingPages = append(res.MissingPages, msg)
			}
		}
		if c.Year != "" && c.Year != "n.d." {
			year, err := strconv.Atoi(c.Year)
			switch {
			case err != nil:
				fail(fmt.Sprintf("Citation %d has invalid year format: %s", c.ID, c.Year))
			case year < 1000 || year > 2100:
				res.Warnings = append(res.Warnings, fmt.Sprintf("Citation %d has suspicious year: %s", c.ID, c.Year))
			}
		}
		if !bad {
			res.Valid++
		}
	}
	return res
}
