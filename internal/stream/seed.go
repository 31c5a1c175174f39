package stream

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/spanrule/internal/ir"
)

// Seed types created by Seed.
const (
	TypeANY         = "ANY"
	TypeW           = "W"
	TypeCW          = "CW"
	TypeSW          = "SW"
	TypeCAP         = "CAP"
	TypeNUM         = "NUM"
	TypePM          = "PM"
	TypePERIOD      = "PERIOD"
	TypeCOMMA       = "COMMA"
	TypeCOLON       = "COLON"
	TypeSEMICOLON   = "SEMICOLON"
	TypeQUESTION    = "QUESTION"
	TypeEXCLAMATION = "EXCLAMATION"
	TypeSPECIAL     = "SPECIAL"
	TypeSPACE       = "SPACE"
	TypeBREAK       = "BREAK"
)

var seedHierarchy = [][2]string{
	{TypeANY, ir.AnnotationType},
	{TypeW, TypeANY},
	{TypeCW, TypeW},
	{TypeSW, TypeW},
	{TypeCAP, TypeW},
	{TypeNUM, TypeANY},
	{TypePM, TypeANY},
	{TypePERIOD, TypePM},
	{TypeCOMMA, TypePM},
	{TypeCOLON, TypePM},
	{TypeSEMICOLON, TypePM},
	{TypeQUESTION, TypePM},
	{TypeEXCLAMATION, TypePM},
	{TypeSPECIAL, TypeANY},
	{TypeSPACE, TypeANY},
	{TypeBREAK, TypeANY},
}

// RegisterSeedTypes declares the seed types that ts does not already have.
func RegisterSeedTypes(ts *ir.TypeSystem) error {
	for _, decl := range seedHierarchy {
		if ts.Has(decl[0]) {
			continue
		}
		if err := ts.Declare(decl[0], decl[1]); err != nil {
			return fmt.Errorf("register seed types: %w", err)
		}
	}
	return nil
}

// Seed normalizes text to NFC, registers the seed types, and creates one
// span per token.
func Seed(text string, ts *ir.TypeSystem, opts ...DocumentOption) (*Document, error) {
	if ts == nil {
		ts = ir.NewTypeSystem()
	}
	if err := RegisterSeedTypes(ts); err != nil {
		return nil, err
	}
	text = norm.NFC.String(text)
	doc := NewDocument(text, ts, opts...)
	for _, tok := range tokenize(text) {
		if _, err := doc.AddSpan(tok.typ, tok.begin, tok.end); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return doc, nil
}

type token struct {
	typ        string
	begin, end int
}

type runeClass int

const (
	classLetter runeClass = iota
	classDigit
	classSpace
	classBreak
	classOther
)

func classify(r rune) runeClass {
	switch {
	case r == '\n' || r == '\r':
		return classBreak
	case unicode.IsSpace(r):
		return classSpace
	case unicode.IsLetter(r):
		return classLetter
	case unicode.IsDigit(r):
		return classDigit
	}
	return classOther
}

func tokenize(text string) []token {
	var toks []token
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		class := classify(r)
		j := i + size
		if class != classOther {
			for j < len(text) {
				next, n := utf8.DecodeRuneInString(text[j:])
				if classify(next) != class {
					break
				}
				j += n
			}
		}
		var typ string
		switch class {
		case classLetter:
			typ = wordType(text[i:j])
		case classDigit:
			typ = TypeNUM
		case classSpace:
			typ = TypeSPACE
		case classBreak:
			typ = TypeBREAK
		default:
			typ = symbolType(r)
		}
		toks = append(toks, token{typ: typ, begin: i, end: j})
		i = j
	}
	return toks
}

// wordType: a single capital or a capital followed by lowercase is CW,
// two or more capitals is CAP, all lowercase is SW, anything else is W.
func wordType(word string) string {
	var upper, lower, n int
	first := true
	firstUpper := false
	for _, r := range word {
		n++
		switch {
		case unicode.IsUpper(r):
			upper++
			if first {
				firstUpper = true
			}
		case unicode.IsLower(r):
			lower++
		}
		first = false
	}
	switch {
	case lower == n:
		return TypeSW
	case firstUpper && upper == 1 && lower == n-1:
		return TypeCW
	case upper == n:
		return TypeCAP
	}
	return TypeW
}

func symbolType(r rune) string {
	switch r {
	case '.':
		return TypePERIOD
	case ',':
		return TypeCOMMA
	case ':':
		return TypeCOLON
	case ';':
		return TypeSEMICOLON
	case '?':
		return TypeQUESTION
	case '!':
		return TypeEXCLAMATION
	}
	if unicode.IsPunct(r) {
		return TypePM
	}
	return TypeSPECIAL
}
