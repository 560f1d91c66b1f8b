package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/acadwrite/internal/doctree"
)

// YAMLParser reads outlines of the form
//
//	title: "Chapter 3: Methodology"
//	sections:
//	  - heading: Introduction
//	    level: 2
//	    query_hint: optional question
//	    subsections:
//	      - heading: Background
type YAMLParser struct{}

type yamlOutline struct {
	Title    string        `yaml:"title"`
	Sections []yamlSection `yaml:"sections"`
}

type yamlSection struct {
	Heading     string        `yaml:"heading"`
	Level       int           `yaml:"level"`
	QueryHint   string        `yaml:"query_hint"`
	Subsections []yamlSection `yaml:"subsections"`
}

func (p *YAMLParser) Parse(r io.Reader, filename string) (*doctree.Outline, error) {
	var raw yamlOutline
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml outline: %w", err)
	}

	out := &doctree.Outline{Title: strings.TrimSpace(raw.Title)}
	if out.Title == "" {
		out.Title = "Untitled"
	}
	for i, s := range raw.Sections {
		n, err := s.node(1, fmt.Sprintf("sections[%d]", i))
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, n)
	}
	return out, nil
}

// node converts s, defaulting its level to one below the parent's.
func (s yamlSection) node(parentLevel int, path string) (*doctree.Node, error) {
	if strings.TrimSpace(s.Heading) == "" {
		return nil, fmt.Errorf("%s: heading is required", path)
	}
	level := s.Level
	if level == 0 {
		level = parentLevel + 1
	}
	if level < 1 || level > 6 {
		return nil, fmt.Errorf("%s: level %d out of range 1-6", path, level)
	}
	n := &doctree.Node{Heading: strings.TrimSpace(s.Heading), Level: level, QueryHint: strings.TrimSpace(s.QueryHint)}
	for i, sub := range s.Subsections {
		c, err := sub.node(level, fmt.Sprintf("%s.subsections[%d]", path, i))
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}
