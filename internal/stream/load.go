package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/spanrule/internal/ir"
)

// DocumentFile is the YAML (or JSON) form of a document.
//
//	text: "Peter lives in Paris."
//	seed: true
//	types:
//	  - {name: Person}
//	spans:
//	  - {type: Person, begin: 0, end: 5}
type DocumentFile struct {
	Text  string     `yaml:"text" json:"text"`
	Seed  bool       `yaml:"seed,omitempty" json:"seed,omitempty"`
	Types []TypeDecl `yaml:"types,omitempty" json:"types,omitempty"`
	Spans []SpanDecl `yaml:"spans,omitempty" json:"spans,omitempty"`
}

// TypeDecl declares a span type. Parent defaults to AnnotationType.
type TypeDecl struct {
	Name   string `yaml:"name" json:"name"`
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`
}

// SpanDecl is an initial span.
type SpanDecl struct {
	Type  string `yaml:"type" json:"type"`
	Begin int    `yaml:"begin" json:"begin"`
	End   int    `yaml:"end" json:"end"`
}

// Build declares the file's types in ts and creates the document.
// A type already present in ts must have the same parent.
func (f *DocumentFile) Build(ts *ir.TypeSystem, opts ...DocumentOption) (*Document, error) {
	if ts == nil {
		ts = ir.NewTypeSystem()
	}
	if err := DeclareTypes(ts, f.Types); err != nil {
		return nil, err
	}

	var doc *Document
	if f.Seed {
		var err error
		if doc, err = Seed(f.Text, ts, opts...); err != nil {
			return nil, err
		}
	} else {
		doc = NewDocument(f.Text, ts, opts...)
	}
	for i, s := range f.Spans {
		if _, err := doc.AddSpan(s.Type, s.Begin, s.End); err != nil {
			return nil, fmt.Errorf("spans[%d]: %w", i, err)
		}
	}
	return doc, nil
}

// DeclareTypes adds decls to ts. Redeclaring a type with the same parent is
// a no-op.
func DeclareTypes(ts *ir.TypeSystem, decls []TypeDecl) error {
	for i, t := range decls {
		parent := t.Parent
		if parent == "" {
			parent = ir.AnnotationType
		}
		if ts.Has(t.Name) {
			existing, _ := ts.Parent(t.Name)
			if existing != parent {
				return fmt.Errorf("types[%d] %s: declared with parent %s, have %s: %w",
					i, t.Name, parent, existing, ir.ErrDuplicateType)
			}
			continue
		}
		if err := ts.Declare(t.Name, parent); err != nil {
			return fmt.Errorf("types[%d]: %w", i, err)
		}
	}
	return nil
}

// ParseDocument decodes a YAML or JSON document file.
func ParseDocument(data []byte, ts *ir.TypeSystem, opts ...DocumentOption) (*Document, error) {
	var f DocumentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return f.Build(ts, opts...)
}

// LoadDocument reads a document from path. Files ending in .yaml, .yml, or
// .json are parsed as DocumentFile; anything else is plain text and seeded.
func LoadDocument(path string, ts *ir.TypeSystem, opts ...DocumentOption) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		doc, err := ParseDocument(data, ts, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return doc, nil
	}
	return Seed(string(data), ts, opts...)
}
