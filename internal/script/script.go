// Package script compiles rule scripts into rules.
//
// A script is a sequence of statements, each ending in ";":
//
//	DECLARE Person, Place;          // new types under Annotation
//	DECLARE Place City, Country;    // new types under Place
//	STRINGLIST names = {"a"};       // variable with an initial value
//	CW{-PARTOF(Person) -> Person} @SW+?;
//
// A rule is a sequence of elements. An element is a type name or a
// parenthesized group, an optional quantifier (*, +, ?, [m], [m,], [m,n],
// each optionally followed by ? for reluctant or + for possessive), and an
// optional block "{conditions -> actions}". "@" marks the element matching
// starts from.
package script

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/spanrule/internal/compiler"
	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

type options struct {
	logger     *slog.Logger
	descriptor *compiler.Descriptor
}

// Option configures Compile.
type Option func(*options)

// WithLogger sets the logger LOG actions write to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDescriptor declares a descriptor's types and variables before the
// script's own statements.
func WithDescriptor(d *compiler.Descriptor) Option {
	return func(o *options) { o.descriptor = d }
}

// Compile parses source and builds its rules. Types declared by the script
// are added to ts, after the seed types.
func Compile(filename, source string, ts *ir.TypeSystem, opts ...Option) (*rule.Script, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if ts == nil {
		ts = ir.NewTypeSystem()
	}
	if err := stream.RegisterSeedTypes(ts); err != nil {
		return nil, err
	}

	ast, err := scriptParser.ParseString(filename, source)
	if err != nil {
		return nil, fromParser(err)
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	b := &builder{
		source: source,
		types:  ts,
		block:  env.NewBlock(name, ts, nil),
		logger: o.logger,
	}
	if o.descriptor != nil {
		if err := o.descriptor.Declare(ts, b.block); err != nil {
			return nil, fmt.Errorf("descriptor: %w", err)
		}
	}
	if err := b.file(ast); err != nil {
		return nil, err
	}
	return &rule.Script{Name: name, Rules: b.rules, Block: b.block, Source: source}, nil
}

// Load reads and compiles the script at path.
func Load(path string, ts *ir.TypeSystem, opts ...Option) (*rule.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load script: %w", err)
	}
	return Compile(path, string(data), ts, opts...)
}
