package sql

import "strings"

type Token struct {
	Type  TokenType
	Value string
	// Pos is the byte offset of the token in the input.
	Pos int
}

type TokenType int

const (
	Keyword TokenType = iota
	Identifier
	QuotedIdentifier
	String
	Number
	Param
	Operator
	Comma
	Semicolon
	ParenOpen
	ParenClose
	EOF
	Unknown
)

func (token Token) String() string {
	switch token.Type {
	case Keyword:
		return "Keyword(" + token.Value + ")"
	case Identifier:
		return "Identifier(" + token.Value + ")"
	case QuotedIdentifier:
		return "QuotedIdentifier(" + token.Value + ")"
	case String:
		return "String(" + token.Value + ")"
	case Number:
		return "Number(" + token.Value + ")"
	case Param:
		return "Param(" + token.Value + ")"
	case Operator:
		return "Operator(" + token.Value + ")"
	case Comma:
		return "Comma"
	case Semicolon:
		return "Semicolon"
	case ParenOpen:
		return "ParenOpen"
	case ParenClose:
		return "ParenClose"
	case EOF:
		return "EOF"
	default:
		return "Unknown(" + token.Value + ")"
	}
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) atEnd() bool {
	return lexer.position >= len(lexer.sql)
}

// NextToken returns the next token. Keywords and identifiers keep their
// original spelling; keyword values are upper-cased.
func (lexer *Lexer) NextToken() Token {
	lexer.skipWhitespaceAndComments()

	start := lexer.position
	if lexer.atEnd() {
		return Token{Type: EOF, Pos: start}
	}

	switch ch := lexer.ch; {
	case ch == ',':
		lexer.readChar()
		return Token{Type: Comma, Value: ",", Pos: start}
	case ch == ';':
		lexer.readChar()
		return Token{Type: Semicolon, Value: ";", Pos: start}
	case ch == '(':
		lexer.readChar()
		return Token{Type: ParenOpen, Value: "(", Pos: start}
	case ch == ')':
		lexer.readChar()
		return Token{Type: ParenClose, Value: ")", Pos: start}
	case ch == '\'':
		return Token{Type: String, Value: lexer.readString(false), Pos: start}
	case (ch == 'E' || ch == 'e') && lexer.peekChar() == '\'':
		lexer.readChar()
		return Token{Type: String, Value: lexer.readString(true), Pos: start}
	case ch == '"':
		return Token{Type: QuotedIdentifier, Value: lexer.readQuotedIdentifier(), Pos: start}
	case ch == '$' && isDigit(lexer.peekChar()):
		lexer.readChar()
		return Token{Type: Param, Value: lexer.readNumber(), Pos: start}
	case ch == '$':
		if body, ok := lexer.readDollarString(); ok {
			return Token{Type: String, Value: body, Pos: start}
		}
		lexer.readChar()
		return Token{Type: Unknown, Value: "$", Pos: start}
	case isDigit(ch) || (ch == '.' && isDigit(lexer.peekChar())):
		return Token{Type: Number, Value: lexer.readNumber(), Pos: start}
	case isIdentStart(ch):
		literal := lexer.readIdentifier()
		upper := strings.ToUpper(literal)
		if keywords[upper] {
			return Token{Type: Keyword, Value: upper, Pos: start}
		}
		return Token{Type: Identifier, Value: literal, Pos: start}
	case isOperator(ch):
		return Token{Type: Operator, Value: lexer.readOperator(), Pos: start}
	default:
		lexer.readChar()
		return Token{Type: Unknown, Value: string(ch), Pos: start}
	}
}

func (lexer *Lexer) PeekToken() Token {
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

func (lexer *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' || lexer.ch == '\f':
			lexer.readChar()
		case lexer.ch == '-' && lexer.peekChar() == '-':
			for !lexer.atEnd() && lexer.ch != '\n' {
				lexer.readChar()
			}
		case lexer.ch == '/' && lexer.peekChar() == '*':
			lexer.skipBlockComment()
		default:
			return
		}
	}
}

// skipBlockComment consumes a possibly nested /* */ comment.
func (lexer *Lexer) skipBlockComment() {
	depth := 0
	for !lexer.atEnd() {
		switch {
		case lexer.ch == '/' && lexer.peekChar() == '*':
			depth++
			lexer.readChar()
		case lexer.ch == '*' && lexer.peekChar() == '/':
			depth--
			lexer.readChar()
			if depth == 0 {
				lexer.readChar()
				return
			}
		}
		lexer.readChar()
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isIdentPart(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readString reads a single-quoted literal. Doubled quotes stand for one
// quote; with escapes set, backslash sequences are kept verbatim.
func (lexer *Lexer) readString(escapes bool) string {
	lexer.readChar() // opening quote
	var sb strings.Builder
	for !lexer.atEnd() {
		switch {
		case lexer.ch == '\'' && lexer.peekChar() == '\'':
			sb.WriteByte('\'')
			lexer.readChar()
		case lexer.ch == '\'':
			lexer.readChar()
			return sb.String()
		case escapes && lexer.ch == '\\':
			sb.WriteByte(lexer.ch)
			lexer.readChar()
			if lexer.atEnd() {
				return sb.String()
			}
			sb.WriteByte(lexer.ch)
		default:
			sb.WriteByte(lexer.ch)
		}
		lexer.readChar()
	}
	return sb.String()
}

func (lexer *Lexer) readQuotedIdentifier() string {
	lexer.readChar() // opening quote
	var sb strings.Builder
	for !lexer.atEnd() {
		if lexer.ch == '"' {
			if lexer.peekChar() != '"' {
				lexer.readChar()
				return sb.String()
			}
			lexer.readChar()
		}
		sb.WriteByte(lexer.ch)
		lexer.readChar()
	}
	return sb.String()
}

// readDollarString reads $tag$...$tag$. It reports false, consuming
// nothing, when the input at the cursor is not a dollar-quote opener.
func (lexer *Lexer) readDollarString() (string, bool) {
	rest := lexer.sql[lexer.position:]
	end := 1
	for end < len(rest) && rest[end] != '$' {
		if !isIdentPart(rest[end]) {
			return "", false
		}
		end++
	}
	if end >= len(rest) {
		return "", false
	}
	tag := rest[:end+1]

	body := rest[len(tag):]
	closing := strings.Index(body, tag)
	consumed := len(rest)
	if closing >= 0 {
		consumed = len(tag) + closing + len(tag)
		body = body[:closing]
	}
	for i := 0; i < consumed; i++ {
		lexer.readChar()
	}
	return body, true
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) || lexer.ch == '.' || lexer.ch == '_' {
		lexer.readChar()
	}
	if lexer.ch == 'e' || lexer.ch == 'E' {
		lexer.readChar()
		if lexer.ch == '+' || lexer.ch == '-' {
			lexer.readChar()
		}
		for isDigit(lexer.ch) {
			lexer.readChar()
		}
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		if (lexer.ch == '-' && lexer.peekChar() == '-') || (lexer.ch == '/' && lexer.peekChar() == '*') {
			break
		}
		lexer.readChar()
	}
	if lexer.position == position {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isIdentStart(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return strings.IndexByte("+-*/<>=~!@#%^&|`?:.[]", ch) >= 0
}

var keywords = map[string]bool{
	"ABORT": true, "ALTER": true, "ANALYZE": true, "AS": true, "BEGIN": true,
	"CALL": true, "CHARACTERISTICS": true, "CHECKPOINT": true, "COMMENT": true,
	"COMMIT": true, "COPY": true, "CREATE": true, "DEALLOCATE": true,
	"DELETE": true, "DESCRIBE": true, "DISCARD": true, "DO": true, "DROP": true,
	"END": true, "EXECUTE": true, "EXPLAIN": true, "FROM": true, "GRANT": true,
	"INDEX": true, "INSERT": true, "INTO": true, "ISOLATION": true, "LEVEL": true,
	"LOCAL": true, "MERGE": true, "NOT": true, "OR": true, "PRAGMA": true,
	"PREPARE": true, "READ": true, "REPLACE": true, "RESET": true,
	"RETURNING": true, "REVOKE": true, "ROLLBACK": true, "SAVEPOINT": true,
	"SELECT": true, "SESSION": true, "SET": true, "SHOW": true, "START": true,
	"TABLE": true, "TEMP": true, "TEMPORARY": true, "TRANSACTION": true,
	"TRUNCATE": true, "UNIQUE": true, "UNLOGGED": true, "UPDATE": true,
	"USE": true, "VACUUM": true, "VALUES": true, "WITH": true, "WORK": true,
	"IF": true, "EXISTS": true, "RECURSIVE": true, "RELEASE": true, "TO": true,
}

func tokenize(sql string) []Token {
	lexer := NewLexer(sql)

	var tokens []Token

	for {
		token := lexer.NextToken()
		if token.Type == EOF {
			return append(tokens, token)
		}
		tokens = append(tokens, token)
	}
}
