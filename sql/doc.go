// Package sql provides a small SQL lexer used to route statements to the
// engine.
//
// It does not parse SQL. It knows enough about PostgreSQL lexical structure
// (quoted strings, dollar quoting, quoted identifiers, comments and $n
// parameters) to split scripts into statements and to tell what kind of
// statement each one is.
//
// # Lexer Usage
//
//	lexer := sql.NewLexer("SELECT * FROM users WHERE id = $1")
//	for {
//	    token := lexer.NextToken()
//	    if token.Type == sql.EOF {
//	        break
//	    }
//	    fmt.Printf("Token: %s\n", token)
//	}
//
// # Statements
//
//	for _, text := range sql.Split("BEGIN; INSERT INTO t VALUES (1); COMMIT") {
//	    statement := sql.Classify(text)
//	    fmt.Println(statement.Kind, statement.CommandTag(1))
//	}
package sql
