package sql

import (
	"reflect"
	"testing"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []Token
	}{
		{
			"select with param",
			"select id from users where id = $1",
			[]Token{
				{Type: Keyword, Value: "SELECT", Pos: 0},
				{Type: Identifier, Value: "id", Pos: 7},
				{Type: Keyword, Value: "FROM", Pos: 10},
				{Type: Identifier, Value: "users", Pos: 15},
				{Type: Identifier, Value: "where", Pos: 21},
				{Type: Identifier, Value: "id", Pos: 27},
				{Type: Operator, Value: "=", Pos: 30},
				{Type: Param, Value: "1", Pos: 32},
				{Type: EOF, Pos: 34},
			},
		},
		{
			"strings and quoted identifiers",
			`'it''s' "Mixed ""Case""" E'a\'b'`,
			[]Token{
				{Type: String, Value: "it's", Pos: 0},
				{Type: QuotedIdentifier, Value: `Mixed "Case"`, Pos: 8},
				{Type: String, Value: `a\'b`, Pos: 25},
				{Type: EOF, Pos: 32},
			},
		},
		{
			"dollar quoting",
			"$$a;b$$ $fn$x$fn$",
			[]Token{
				{Type: String, Value: "a;b", Pos: 0},
				{Type: String, Value: "x", Pos: 8},
				{Type: EOF, Pos: 17},
			},
		},
		{
			"comments",
			"-- leading\n1 /* a /* nested */ b */ ;",
			[]Token{
				{Type: Number, Value: "1", Pos: 11},
				{Type: Semicolon, Value: ";", Pos: 36},
				{Type: EOF, Pos: 37},
			},
		},
		{
			"casts and punctuation",
			"(1.5e3)::float8, x",
			[]Token{
				{Type: ParenOpen, Value: "(", Pos: 0},
				{Type: Number, Value: "1.5e3", Pos: 1},
				{Type: ParenClose, Value: ")", Pos: 6},
				{Type: Operator, Value: "::", Pos: 7},
				{Type: Identifier, Value: "float8", Pos: 9},
				{Type: Comma, Value: ",", Pos: 15},
				{Type: Identifier, Value: "x", Pos: 17},
				{Type: EOF, Pos: 18},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tokens := tokenize(test.sql)
			if !reflect.DeepEqual(tokens, test.expected) {
				t.Errorf("expected %v, got %v", test.expected, tokens)
			}
		})
	}
}

func TestPeekToken(t *testing.T) {
	lexer := NewLexer("BEGIN; COMMIT")

	peeked := lexer.PeekToken()
	next := lexer.NextToken()
	if peeked != next {
		t.Fatalf("peek returned %v, next returned %v", peeked, next)
	}
	if next.Value != "BEGIN" {
		t.Errorf("expected BEGIN, got %v", next)
	}
}
