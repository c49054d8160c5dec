package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nickyhof/EmbedDB"
	"github.com/nickyhof/EmbedDB/config"
	"github.com/nickyhof/EmbedDB/core"
	"github.com/nickyhof/EmbedDB/db"
	"github.com/nickyhof/EmbedDB/sql"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// executor runs statements outside or inside a transaction.
type executor interface {
	QueryRaw(ctx context.Context, query core.Query) (*core.ResultSet, error)
	ExecuteRaw(ctx context.Context, query core.Query) (int64, error)
}

// CLI holds the CLI state
type CLI struct {
	instance    *EmbedDB.Instance
	tx          *db.Transaction
	out         io.Writer
	history     []string
	historyFile string
	schema      string // current schema context
}

// newCLI starts a shell in the schema the instance was configured with.
func newCLI(instance *EmbedDB.Instance, out io.Writer) *CLI {
	return &CLI{
		instance: instance,
		out:      out,
		history:  make([]string, 0),
		schema:   instance.Config().Schema,
	}
}

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	dataDir := flag.String("dataDir", "", "Database directory (memory if empty)")
	migrations := flag.String("migrations", "", "Migration source applied at startup")
	sqlFile := flag.String("sqlFile", "", "SQL file to execute (non-interactive)")
	flag.Parse()

	printBanner()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *migrations != "" {
		cfg.Migrations.Source = *migrations
	}

	if cfg.DataDir == "" {
		fmt.Printf("%sUsing memory storage%s\n", SuccessColor, ResetColor)
	} else {
		fmt.Printf("%sUsing file storage: %s%s\n", SuccessColor, cfg.DataDir, ResetColor)
	}

	instance, err := EmbedDB.Open(context.Background(), cfg)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	defer instance.Close()

	cli := newCLI(instance, os.Stdout)
	cli.historyFile = getHistoryPath()
	cli.loadHistory()

	// Execute SQL file if provided
	if *sqlFile != "" {
		err := cli.importFile(*sqlFile)
		if err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.run(os.Stdin)
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("EmbedDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Embedded PostgreSQL-dialect engine  ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run(in io.Reader) {
	reader := bufio.NewReader(in)
	var multiLineBuffer strings.Builder

	for {
		fmt.Fprint(cli.out, cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil {
			cli.quit()
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Check for special commands (only when not in multi-line mode)
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if !cli.handleCommand(input) {
				return
			}
			continue
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)

		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		statement := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(statement) == "" {
			continue
		}

		cli.addToHistory(statement + ";")

		result, err := cli.execute(context.Background(), statement)
		if err != nil {
			cli.printError(err)
		} else {
			result.Display(cli.out)
		}
	}
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}

	schemaPart := ""
	if cli.schema != "" {
		schemaPart = fmt.Sprintf(" (%s)", cli.schema)
	}
	txPart := ""
	if cli.tx != nil {
		txPart = "*"
	}

	return fmt.Sprintf("%sembeddb%s%s>%s ", PromptColor, schemaPart, txPart, ResetColor)
}

// handleCommand runs a dot command. It returns false when the CLI should
// exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}
	ctx := context.Background()

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		cli.quit()
		return false

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		switch {
		case len(parts) > 1:
			cli.showTables(ctx, parts[1])
		case cli.schema != "":
			cli.showTables(ctx, cli.schema)
		default:
			cli.showTables(ctx, "main")
		}

	case ".schemas":
		cli.showSchemas(ctx)

	case ".describe", ".d":
		if len(parts) > 1 {
			cli.describeTable(ctx, parts[1])
		} else {
			cli.printUsage(".describe <table>")
		}

	case ".use":
		if len(parts) > 1 {
			cli.schema = parts[1]
			cli.printSuccess("Using schema: %s", cli.schema)
		} else {
			cli.printUsage(".use <schema>")
		}

	case ".begin":
		if err := cli.begin(ctx); err != nil {
			cli.printError(err)
		} else {
			cli.printSuccess("Transaction started")
		}

	case ".commit":
		if err := cli.commit(ctx); err != nil {
			cli.printError(err)
		} else {
			cli.printSuccess("Transaction committed")
		}

	case ".rollback":
		if err := cli.rollback(ctx); err != nil {
			cli.printError(err)
		} else {
			cli.printSuccess("Transaction rolled back")
		}

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "EmbedDB version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			if err := cli.importFile(parts[1]); err != nil {
				cli.printError(err)
			}
		} else {
			cli.printUsage(".import <file.sql>")
		}

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) quit() {
	if cli.tx != nil {
		cli.tx.Rollback(context.Background())
		cli.tx = nil
	}
	cli.saveHistory()
	fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .help, .h          Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit       Exit the CLI")
	fmt.Fprintln(cli.out, "  .schemas           List all schemas")
	fmt.Fprintln(cli.out, "  .tables [schema]   List tables in a schema")
	fmt.Fprintln(cli.out, "  .describe <table>  Show the columns of a table")
	fmt.Fprintln(cli.out, "  .use <schema>      Set the current schema context")
	fmt.Fprintln(cli.out, "  .begin             Start a transaction")
	fmt.Fprintln(cli.out, "  .commit            Commit the open transaction")
	fmt.Fprintln(cli.out, "  .rollback          Roll back the open transaction")
	fmt.Fprintln(cli.out, "  .import <file>     Execute SQL statements from a file")
	fmt.Fprintln(cli.out, "  .history           Show command history")
	fmt.Fprintln(cli.out, "  .clear             Clear the screen")
	fmt.Fprintln(cli.out, "  .version           Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sSQL:%s PostgreSQL dialect, terminated by ';'. BEGIN, COMMIT and ROLLBACK work like the dot commands.\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out)
}

func (cli *CLI) current() executor {
	if cli.tx != nil {
		return cli.tx
	}
	return cli.instance.Adapter
}

func (cli *CLI) begin(ctx context.Context) error {
	if cli.tx != nil {
		return errors.New("a transaction is already open")
	}
	tx, err := cli.instance.Transaction(ctx)
	if err != nil {
		return err
	}
	cli.tx = tx
	return nil
}

func (cli *CLI) commit(ctx context.Context) error {
	if cli.tx == nil {
		return errors.New("no transaction is open")
	}
	tx := cli.tx
	cli.tx = nil
	return tx.Commit(ctx)
}

func (cli *CLI) rollback(ctx context.Context) error {
	if cli.tx == nil {
		return errors.New("no transaction is open")
	}
	tx := cli.tx
	cli.tx = nil
	return tx.Rollback(ctx)
}

// execute runs one statement. Statements that produce rows go through
// QueryRaw, everything else through ExecuteRaw.
func (cli *CLI) execute(ctx context.Context, text string) (db.Result, error) {
	start := time.Now()
	statement := sql.Classify(text)

	switch statement.Kind {
	case sql.Begin:
		return db.NewCommitResult(0, time.Since(start)), cli.begin(ctx)
	case sql.Commit:
		return db.NewCommitResult(0, time.Since(start)), cli.commit(ctx)
	case sql.Rollback:
		return db.NewCommitResult(0, time.Since(start)), cli.rollback(ctx)
	}

	query := core.Query{SQL: text}
	if statement.ReturnsRows() {
		rs, err := cli.current().QueryRaw(ctx, query)
		if err != nil {
			return nil, err
		}
		return db.NewQueryResult(rs, time.Since(start)), nil
	}

	affected, err := cli.current().ExecuteRaw(ctx, query)
	if err != nil {
		return nil, err
	}
	return db.NewCommitResult(affected, time.Since(start)), nil
}

func (cli *CLI) queryText(ctx context.Context, text string, args ...any) {
	argTypes := make([]core.ArgType, len(args))
	for i := range args {
		argTypes[i] = core.ArgType{ScalarType: core.ScalarString, Arity: core.ArityScalar}
	}

	start := time.Now()
	rs, err := cli.current().QueryRaw(ctx, core.Query{SQL: text, Args: args, ArgTypes: argTypes})
	if err != nil {
		cli.printError(err)
		return
	}
	db.NewQueryResult(rs, time.Since(start)).Display(cli.out)
}

func (cli *CLI) showSchemas(ctx context.Context) {
	cli.queryText(ctx, "SELECT DISTINCT schema_name FROM information_schema.schemata ORDER BY schema_name")
}

func (cli *CLI) showTables(ctx context.Context, schema string) {
	cli.queryText(ctx, "SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name", schema)
}

func (cli *CLI) describeTable(ctx context.Context, table string) {
	schema := cli.schema
	if s, t, ok := strings.Cut(table, "."); ok {
		schema, table = s, t
	}
	if schema == "" {
		schema = "main"
	}
	cli.queryText(ctx, "SELECT column_name, data_type, is_nullable, column_default FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position", schema, table)
}

func (cli *CLI) printError(err error) {
	fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
}

func (cli *CLI) printSuccess(format string, args ...any) {
	fmt.Fprintf(cli.out, "%s✓ %s%s\n", SuccessColor, fmt.Sprintf(format, args...), ResetColor)
}

func (cli *CLI) printUsage(usage string) {
	fmt.Fprintf(cli.out, "%s✗ Usage: %s%s\n", ErrorColor, usage, ResetColor)
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".embeddb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes SQL statements from a file
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ctx := context.Background()
	successCount := 0
	errorCount := 0

	for i, stmt := range sql.Split(string(data)) {
		result, err := cli.execute(ctx, stmt)
		if err != nil {
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}

		successCount++
		switch r := result.(type) {
		case db.CommitResult:
			detail := ""
			if r.RecordsAffected > 0 {
				detail = fmt.Sprintf(" (%d affected)", r.RecordsAffected)
			}
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s%s%s\n", SuccessColor, i+1, truncate(stmt, 50), detail, ResetColor)
		case db.QueryResult:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, i+1, truncate(stmt, 50), r.RecordsRead, ResetColor)
		}
	}

	fmt.Fprintf(cli.out, "\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
