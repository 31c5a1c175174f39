package script

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// fileAST is a whole script: declarations and rules in order.
//
//nolint:govet // participle grammar tags are not standard struct tags
type fileAST struct {
	Statements []*statementAST `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type statementAST struct {
	Declare *declareAST `  @@`
	Var     *varAST     `| @@`
	Rule    *ruleAST    `| @@`
}

// declareAST covers "DECLARE A, B;" and "DECLARE Parent A, B;".
//
//nolint:govet // participle grammar tags are not standard struct tags
type declareAST struct {
	Pos   lexer.Position
	First string   `"DECLARE" @Ident`
	Sub   []string `( @Ident ( "," @Ident )* )?`
	More  []string `( "," @Ident )* ";"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type varAST struct {
	Pos   lexer.Position
	Kind  string   `@( "BOOLEAN" | "BOOL" | "INT" | "INTEGER" | "DOUBLE" | "FLOAT" | "STRING" | "TYPE" | "BOOLEANLIST" | "BOOLLIST" | "INTLIST" | "INTEGERLIST" | "DOUBLELIST" | "FLOATLIST" | "STRINGLIST" | "TYPELIST" )`
	Names []string `@Ident ( "," @Ident )*`
	Init  *argAST  `( "=" @@ )? ";"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type ruleAST struct {
	Pos      lexer.Position
	Elements []*elementAST `@@+ ";"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type elementAST struct {
	Pos        lexer.Position
	Anchor     bool           `@"@"?`
	Type       string         `( @Ident`
	Group      []*elementAST  `| "(" @@+ ")" )`
	Quantifier *quantifierAST `@@?`
	Block      *blockAST      `( "{" @@ "}" )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type quantifierAST struct {
	Pos   lexer.Position
	Op    string    `( @( "*" | "+" | "?" )`
	Range *rangeAST `| "[" @@ "]" )`
	Mode  string    `@( "?" | "+" )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type rangeAST struct {
	Min   int  `@Int`
	Comma bool `@","?`
	Max   *int `@Int?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type blockAST struct {
	Conditions []*callAST `( @@ ( "," @@ )* )?`
	Arrow      bool       `( @"->"`
	Actions    []*callAST `  ( @@ ( "," @@ )* )? )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type callAST struct {
	Pos    lexer.Position
	Negate bool      `@"-"?`
	Name   string    `@Ident`
	Parens bool      `( @"("`
	Args   []*argAST `  ( @@ ( "," @@ )* )? ")" )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type argAST struct {
	Pos    lexer.Position
	String *string   `  @String`
	Float  *float64  `| @Float`
	Int    *int64    `| @Int`
	Bool   *string   `| @( "true" | "false" )`
	List   []*argAST `| "{" ( @@ ( "," @@ )* )? "}"`
	Call   *callAST  `| @@`
}

var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Float", Pattern: `-?[0-9]+\.[0-9]+`},
	{Name: "Int", Pattern: `-?[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Punct", Pattern: `[-@(){}\[\],;=?*+]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var scriptParser = participle.MustBuild[fileAST](
	participle.Lexer(scriptLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)
