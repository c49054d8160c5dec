package core

import (
	"fmt"
	"strings"
)

type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
	Serializable
)

// SQL returns the level as written after SET TRANSACTION ISOLATION LEVEL.
func (level IsolationLevel) SQL() string {
	switch level {
	case ReadUncommitted:
		return "READ UNCOMMITTED"
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return ""
	}
}

func (level IsolationLevel) String() string {
	return level.SQL()
}

// ParseIsolationLevel accepts the SQL spelling in any case, with spaces,
// dashes or underscores between words ("read committed", "ReadCommitted").
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", "", "-", "", " ", "").Replace(normalized)

	switch normalized {
	case "READUNCOMMITTED":
		return ReadUncommitted, nil
	case "READCOMMITTED":
		return ReadCommitted, nil
	case "REPEATABLEREAD":
		return RepeatableRead, nil
	case "SERIALIZABLE":
		return Serializable, nil
	default:
		return 0, fmt.Errorf("unknown isolation level: %q", s)
	}
}

// TransactionOptions describes how a transaction boundary is owned.
type TransactionOptions struct {
	IsolationLevel *IsolationLevel

	// UsePhantomQuery is set when the engine owns the transaction boundary,
	// so no BEGIN/COMMIT/ROLLBACK text should be sent through QueryRaw.
	UsePhantomQuery bool
}
