package sql

import (
	"strconv"
	"strings"
)

type Kind int

const (
	Other Kind = iota
	Select
	Insert
	Update
	Delete
	Begin
	Commit
	Rollback
	SetIsolation
	Set
	DDL
)

func (kind Kind) String() string {
	switch kind {
	case Select:
		return "Select"
	case Insert:
		return "Insert"
	case Update:
		return "Update"
	case Delete:
		return "Delete"
	case Begin:
		return "Begin"
	case Commit:
		return "Commit"
	case Rollback:
		return "Rollback"
	case SetIsolation:
		return "SetIsolation"
	case Set:
		return "Set"
	case DDL:
		return "DDL"
	default:
		return "Other"
	}
}

// Statement describes a single SQL statement.
type Statement struct {
	SQL  string
	Kind Kind

	// Tag is the command word(s) reported on completion, e.g. "CREATE TABLE".
	Tag string

	// Returning is set for data-modifying statements that return rows.
	Returning bool

	// Params is the highest $n placeholder referenced.
	Params int

	// Isolation holds the level named by SET TRANSACTION ISOLATION LEVEL,
	// e.g. "READ COMMITTED".
	Isolation string
}

// ReturnsRows reports whether executing the statement yields a row set.
func (statement Statement) ReturnsRows() bool {
	switch statement.Kind {
	case Select, Other:
		return true
	case Insert, Update, Delete:
		return statement.Returning
	default:
		return false
	}
}

// Modifies reports whether the statement is INSERT, UPDATE or DELETE.
func (statement Statement) Modifies() bool {
	return statement.Kind == Insert || statement.Kind == Update || statement.Kind == Delete
}

// CommandTag returns the completion tag for rows affected or returned.
func (statement Statement) CommandTag(rows int64) string {
	n := strconv.FormatInt(rows, 10)
	switch statement.Kind {
	case Insert:
		return "INSERT 0 " + n
	case Update:
		return "UPDATE " + n
	case Delete:
		return "DELETE " + n
	case Select:
		return "SELECT " + n
	case Other:
		if statement.Tag == "" || statement.Tag == "VALUES" || statement.Tag == "WITH" {
			return "SELECT " + n
		}
		return statement.Tag
	default:
		return statement.Tag
	}
}

// Split breaks a script into statements at top-level semicolons. Empty
// statements are dropped; the text of each statement is trimmed.
func Split(script string) []string {
	lexer := NewLexer(script)

	var statements []string
	start := 0
	emit := func(end int) {
		if text := strings.TrimSpace(script[start:end]); text != "" && hasTokens(text) {
			statements = append(statements, text)
		}
	}

	for {
		token := lexer.NextToken()
		switch token.Type {
		case EOF:
			emit(len(script))
			return statements
		case Semicolon:
			emit(token.Pos)
			start = token.Pos + 1
		}
	}
}

func hasTokens(text string) bool {
	return NewLexer(text).NextToken().Type != EOF
}

// Classify determines the kind of a single statement.
func Classify(text string) Statement {
	tokens := tokenize(text)
	statement := Statement{SQL: text, Params: maxParam(tokens)}

	words := leadingKeywords(tokens, 6)
	if len(words) == 0 {
		return statement
	}

	first := words[0]
	statement.Tag = first

	switch first {
	case "SELECT", "VALUES", "TABLE", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA":
		statement.Kind = Other
		if first == "SELECT" {
			statement.Kind = Select
		}
	case "WITH":
		statement.Kind = mainVerb(tokens)
		if statement.Kind == Other {
			statement.Kind = Select
		}
		statement.Tag = statement.Kind.verb()
	case "INSERT":
		statement.Kind = Insert
	case "UPDATE":
		statement.Kind = Update
	case "DELETE":
		statement.Kind = Delete
	case "BEGIN":
		statement.Kind = Begin
	case "START":
		statement.Kind = Begin
		statement.Tag = "START TRANSACTION"
	case "COMMIT", "END":
		statement.Kind = Commit
		statement.Tag = "COMMIT"
	case "ROLLBACK", "ABORT":
		statement.Kind = Rollback
		statement.Tag = "ROLLBACK"
		if len(words) > 1 && words[1] == "TO" {
			statement.Kind = Other
		}
	case "SET":
		statement.Kind = Set
		if level, ok := isolationLevel(tokens); ok {
			statement.Kind = SetIsolation
			statement.Isolation = level
		}
	case "CREATE", "DROP", "ALTER":
		statement.Kind = DDL
		statement.Tag = ddlTag(words)
	case "TRUNCATE", "COMMENT", "GRANT", "REVOKE":
		statement.Kind = DDL
		if first == "TRUNCATE" {
			statement.Tag = "TRUNCATE TABLE"
		}
	case "SAVEPOINT", "RELEASE":
		statement.Kind = Other
	}

	if statement.Modifies() {
		statement.Returning = hasTopLevel(tokens, "RETURNING")
	}
	return statement
}

func (kind Kind) verb() string {
	switch kind {
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "SELECT"
	}
}

// leadingKeywords returns up to n leading keyword or identifier words,
// upper-cased, stopping at the first other token.
func leadingKeywords(tokens []Token, n int) []string {
	var words []string
	for _, token := range tokens {
		if len(words) == n {
			break
		}
		switch token.Type {
		case Keyword:
			words = append(words, token.Value)
		case Identifier:
			words = append(words, strings.ToUpper(token.Value))
		default:
			return words
		}
	}
	return words
}

// ddlTag builds tags such as "CREATE TABLE" or "DROP INDEX", skipping
// modifiers that the completion tag leaves out.
func ddlTag(words []string) string {
	tag := words[0]
	for _, word := range words[1:] {
		switch word {
		case "OR", "REPLACE", "UNIQUE", "TEMP", "TEMPORARY", "UNLOGGED", "LOCAL", "MATERIALIZED":
			continue
		}
		return tag + " " + word
	}
	return tag
}

// mainVerb finds the statement verb following a WITH clause.
func mainVerb(tokens []Token) Kind {
	depth := 0
	for _, token := range tokens[1:] {
		switch token.Type {
		case ParenOpen:
			depth++
		case ParenClose:
			depth--
		case Keyword:
			if depth != 0 {
				continue
			}
			switch token.Value {
			case "SELECT":
				return Select
			case "INSERT":
				return Insert
			case "UPDATE":
				return Update
			case "DELETE":
				return Delete
			}
		}
	}
	return Other
}

func hasTopLevel(tokens []Token, keyword string) bool {
	depth := 0
	for _, token := range tokens {
		switch token.Type {
		case ParenOpen:
			depth++
		case ParenClose:
			depth--
		case Keyword:
			if depth == 0 && token.Value == keyword {
				return true
			}
		}
	}
	return false
}

// isolationLevel recognizes SET TRANSACTION ISOLATION LEVEL <level> and
// SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL <level>.
func isolationLevel(tokens []Token) (string, bool) {
	var words []string
	for _, token := range tokens {
		if token.Type == Keyword || token.Type == Identifier {
			words = append(words, strings.ToUpper(token.Value))
		}
	}

	for i := 0; i+2 < len(words); i++ {
		if words[i] == "TRANSACTION" && words[i+1] == "ISOLATION" && words[i+2] == "LEVEL" {
			level := words[i+3:]
			if len(level) > 2 {
				level = level[:2]
			}
			if len(level) == 2 && level[0] == "SERIALIZABLE" {
				level = level[:1]
			}
			return strings.Join(level, " "), len(level) > 0
		}
	}
	return "", false
}

func maxParam(tokens []Token) int {
	highest := 0
	for _, token := range tokens {
		if token.Type != Param {
			continue
		}
		if n, err := strconv.Atoi(token.Value); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}
