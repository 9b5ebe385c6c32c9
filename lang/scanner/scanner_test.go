package scanner_test

import (
	"testing"

	"github.com/mna/wisp/lang/scanner"
	"github.com/mna/wisp/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()

	var s scanner.Scanner
	s.Init(src)

	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, `(){},.-+;*!!====<=<>>= /`)
	want := []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA,
		token.DOT, token.MINUS, token.PLUS, token.SEMICOLON, token.STAR,
		token.BANG, token.BANG_EQ, token.EQ_EQ, token.EQ, token.LT_EQ,
		token.LT, token.GT, token.GT_EQ, token.SLASH, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		require.Equalf(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "var x = foo and bar or nil")
	require.Equal(t, token.VAR, toks[0].Kind)
	require.Equal(t, token.IDENT, toks[1].Kind)
	require.Equal(t, "x", toks[1].Lexeme)
	require.Equal(t, token.EQ, toks[2].Kind)
	require.Equal(t, token.IDENT, toks[3].Kind)
	require.Equal(t, token.AND, toks[4].Kind)
	require.Equal(t, token.IDENT, toks[5].Kind)
	require.Equal(t, token.OR, toks[6].Kind)
	require.Equal(t, token.NIL, toks[7].Kind)
}

func TestScanNumbers(t *testing.T) {
	toks := scanAll(t, "123 45.67 0.5")
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, "45.67", toks[1].Lexeme)
	require.Equal(t, "0.5", toks[2].Lexeme)
}

func TestScanStrings(t *testing.T) {
	toks := scanAll(t, `"hi there"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, `"hi there"`, toks[0].Lexeme)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"oops`)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	require.Equal(t, "unterminated string", toks[0].Lexeme)
}

func TestScanLineTracking(t *testing.T) {
	toks := scanAll(t, "var a = 1;\nvar b = 2;")
	require.Equal(t, 1, toks[0].Line)
	// "var" on the second line
	var found bool
	for _, tk := range toks {
		if tk.Kind == token.VAR && tk.Line == 2 {
			found = true
		}
	}
	require.True(t, found)
}

func TestScanComments(t *testing.T) {
	toks := scanAll(t, "var a = 1; // a comment\nvar b = 2;")
	require.Equal(t, token.VAR, toks[0].Kind)
	kinds := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	require.NotContains(t, kinds, token.ILLEGAL)
}

func TestScanRepeatedEOF(t *testing.T) {
	var s scanner.Scanner
	s.Init("")
	require.Equal(t, token.EOF, s.Scan().Kind)
	require.Equal(t, token.EOF, s.Scan().Kind)
}
