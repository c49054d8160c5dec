package ps

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/nickyhof/EmbedDB/catalog"
	"github.com/nickyhof/EmbedDB/sql"
)

var ErrProtocol = errors.New("malformed protocol frame")

// Session is the protocol state of one client: its prepared statements,
// portals and transaction status. A session keeps the task slot while its
// client is inside a transaction block, so adapter calls and other sessions
// wait until the block ends. A Session is not safe for concurrent use.
type Session struct {
	instance *Instance

	statements map[string]*preparedStatement
	portals    map[string]*portal

	inTx    bool
	failed  bool
	holding bool

	// skipping discards extended-protocol messages after an error until
	// the next Sync.
	skipping bool
}

type preparedStatement struct {
	statement sql.Statement
	paramOIDs []uint32
}

type portal struct {
	prepared *preparedStatement
	args     []any
	executed bool
	results  *Results
	tag      string
	err      error
	offset   int
}

// NewSession starts the protocol state for one client.
func (instance *Instance) NewSession() *Session {
	s := &Session{instance: instance}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.statements = make(map[string]*preparedStatement)
	s.portals = make(map[string]*portal)
	s.inTx, s.failed, s.skipping = false, false, false
}

func (s *Session) txStatus() byte {
	switch {
	case s.failed:
		return 'E'
	case s.inTx:
		return 'T'
	default:
		return 'I'
	}
}

type reply struct {
	buf []byte
	err error
}

func (r *reply) send(msg pgproto3.BackendMessage) {
	if r.err != nil {
		return
	}
	r.buf, r.err = msg.Encode(r.buf)
}

func (r *reply) sendError(err error) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		pgErr = protocolError(codeInternalError, err.Error())
	}
	r.send(&pgproto3.ErrorResponse{
		Severity:            pgErr.Severity,
		SeverityUnlocalized: pgErr.SeverityUnlocalized,
		Code:                pgErr.Code,
		Message:             pgErr.Message,
		Detail:              pgErr.Detail,
		Hint:                pgErr.Hint,
		ColumnName:          pgErr.ColumnName,
	})
}

// ExecProtocolRaw processes one or more frontend protocol messages and
// returns the encoded backend responses. Each message is a type byte, a
// four-byte big-endian length that includes itself, and the body.
func (s *Session) ExecProtocolRaw(ctx context.Context, frame []byte) ([]byte, error) {
	if !s.holding {
		if err := s.instance.acquire(ctx); err != nil {
			return nil, err
		}
		s.holding = true
	}
	defer s.settle()

	r := &reply{}
	for len(frame) > 0 {
		if len(frame) < 5 {
			return nil, fmt.Errorf("%w: truncated header", ErrProtocol)
		}
		length := int(binary.BigEndian.Uint32(frame[1:5]))
		if length < 4 || len(frame) < 1+length {
			return nil, fmt.Errorf("%w: message length %d exceeds frame", ErrProtocol, length)
		}
		msgType, body := frame[0], frame[5:1+length]
		frame = frame[1+length:]

		if err := s.handleMessage(ctx, r, msgType, body); err != nil {
			return nil, err
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	return r.buf, nil
}

// Close ends the session, rolling back an open transaction block and
// releasing the task slot. Close is idempotent.
func (s *Session) Close(ctx context.Context) {
	if !s.holding {
		s.reset()
		return
	}
	s.terminate(ctx)
	s.settle()
}

// settle gives the task slot back once the client is outside a
// transaction block.
func (s *Session) settle() {
	if s.holding && !s.inTx && !s.failed {
		s.holding = false
		s.instance.release()
	}
}

// handleMessage returns an error only when the instance can no longer
// answer; query failures are reported to the client as ErrorResponse.
func (s *Session) handleMessage(ctx context.Context, r *reply, msgType byte, body []byte) error {
	if s.skipping && msgType != 'S' {
		return nil
	}

	switch msgType {
	case 'Q':
		msg := &pgproto3.Query{}
		if err := msg.Decode(body); err != nil {
			r.sendError(protocolError(codeProtocolViolation, err.Error()))
			r.send(&pgproto3.ReadyForQuery{TxStatus: s.txStatus()})
			return nil
		}
		return s.simpleQuery(ctx, r, msg.String)
	case 'P':
		msg := &pgproto3.Parse{}
		if err := msg.Decode(body); err != nil {
			return s.extendedError(r, protocolError(codeProtocolViolation, err.Error()))
		}
		return s.parse(r, msg)
	case 'B':
		msg := &pgproto3.Bind{}
		if err := msg.Decode(body); err != nil {
			return s.extendedError(r, protocolError(codeProtocolViolation, err.Error()))
		}
		return s.bind(r, msg)
	case 'D':
		msg := &pgproto3.Describe{}
		if err := msg.Decode(body); err != nil {
			return s.extendedError(r, protocolError(codeProtocolViolation, err.Error()))
		}
		return s.describe(ctx, r, msg)
	case 'E':
		msg := &pgproto3.Execute{}
		if err := msg.Decode(body); err != nil {
			return s.extendedError(r, protocolError(codeProtocolViolation, err.Error()))
		}
		return s.execute(ctx, r, msg)
	case 'C':
		msg := &pgproto3.Close{}
		if err := msg.Decode(body); err != nil {
			return s.extendedError(r, protocolError(codeProtocolViolation, err.Error()))
		}
		if msg.ObjectType == 'S' {
			delete(s.statements, msg.Name)
		} else {
			delete(s.portals, msg.Name)
		}
		r.send(&pgproto3.CloseComplete{})
	case 'S':
		s.skipping = false
		r.send(&pgproto3.ReadyForQuery{TxStatus: s.txStatus()})
	case 'H':
		// Responses are returned with every call.
	case 'X':
		s.terminate(ctx)
	default:
		return s.extendedError(r, protocolError(codeProtocolViolation,
			fmt.Sprintf("unsupported frontend message type %q", msgType)))
	}
	return nil
}

func (s *Session) extendedError(r *reply, err error) error {
	if errors.Is(err, ErrClosed) {
		return err
	}
	s.skipping = true
	r.sendError(err)
	return nil
}

// terminate rolls back an open transaction block and forgets every
// statement and portal. The caller holds the task slot.
func (s *Session) terminate(ctx context.Context) {
	if s.inTx {
		s.instance.rollbackQuietly(ctx)
	}
	s.reset()
}

func (s *Session) simpleQuery(ctx context.Context, r *reply, query string) error {
	statements := sql.Split(query)
	if len(statements) == 0 {
		r.send(&pgproto3.EmptyQueryResponse{})
	}

	for _, text := range statements {
		results, tag, err := s.protocolRun(ctx, sql.Classify(text), nil)
		if errors.Is(err, ErrClosed) {
			return err
		}
		if err != nil {
			r.sendError(err)
			break
		}
		if len(results.Fields) > 0 {
			r.send(rowDescription(results.Fields))
		}
		sendRows(r, results.Rows)
		r.send(&pgproto3.CommandComplete{CommandTag: []byte(tag)})
	}

	r.send(&pgproto3.ReadyForQuery{TxStatus: s.txStatus()})
	return nil
}

// protocolRun executes a statement on behalf of a protocol client and
// tracks the client's transaction status.
func (s *Session) protocolRun(ctx context.Context, statement sql.Statement, args []any) (*Results, string, error) {
	if s.failed {
		switch statement.Kind {
		case sql.Commit, sql.Rollback:
			s.instance.rollbackQuietly(ctx)
			s.failed, s.inTx = false, false
			return &Results{}, "ROLLBACK", nil
		default:
			return nil, "", protocolError(codeInFailedTransaction,
				"current transaction is aborted, commands ignored until end of transaction block")
		}
	}

	results, err := s.instance.run(ctx, statement, args, nil)
	if err != nil {
		if s.inTx {
			s.failed = true
		}
		return nil, "", err
	}

	switch statement.Kind {
	case sql.Begin:
		s.inTx = true
	case sql.Commit, sql.Rollback:
		s.inTx = false
	}

	count := int64(len(results.Rows))
	if results.AffectedRows != nil {
		count = *results.AffectedRows
	}
	return results, statement.CommandTag(count), nil
}

func (s *Session) parse(r *reply, msg *pgproto3.Parse) error {
	if _, exists := s.statements[msg.Name]; exists && msg.Name != "" {
		return s.extendedError(r, protocolError(codeDuplicatePrepared,
			fmt.Sprintf("prepared statement %q already exists", msg.Name)))
	}
	s.statements[msg.Name] = &preparedStatement{
		statement: sql.Classify(msg.Query),
		paramOIDs: msg.ParameterOIDs,
	}
	r.send(&pgproto3.ParseComplete{})
	return nil
}

func (s *Session) bind(r *reply, msg *pgproto3.Bind) error {
	prepared, ok := s.statements[msg.PreparedStatement]
	if !ok {
		return s.extendedError(r, protocolError(codeUndefinedPrepared,
			fmt.Sprintf("prepared statement %q does not exist", msg.PreparedStatement)))
	}
	for _, format := range msg.ResultFormatCodes {
		if format != 0 {
			return s.extendedError(r, protocolError(codeFeatureNotSupported,
				"binary result format is not supported"))
		}
	}

	args := make([]any, len(msg.Parameters))
	for i, param := range msg.Parameters {
		if param == nil {
			continue
		}
		var oid uint32
		if i < len(prepared.paramOIDs) {
			oid = prepared.paramOIDs[i]
		}
		var err error
		if paramFormat(msg.ParameterFormatCodes, i) == 0 {
			args[i], err = textParam(string(param), oid)
		} else {
			args[i], err = binaryParam(param, oid)
		}
		if err != nil {
			return s.extendedError(r, err)
		}
	}

	s.portals[msg.DestinationPortal] = &portal{prepared: prepared, args: args}
	r.send(&pgproto3.BindComplete{})
	return nil
}

func paramFormat(codes []int16, i int) int16 {
	switch len(codes) {
	case 0:
		return 0
	case 1:
		return codes[0]
	default:
		if i < len(codes) {
			return codes[i]
		}
		return 0
	}
}

func (s *Session) describe(ctx context.Context, r *reply, msg *pgproto3.Describe) error {

	if msg.ObjectType == 'S' {
		prepared, ok := s.statements[msg.Name]
		if !ok {
			return s.extendedError(r, protocolError(codeUndefinedPrepared,
				fmt.Sprintf("prepared statement %q does not exist", msg.Name)))
		}
		r.send(&pgproto3.ParameterDescription{ParameterOIDs: parameterOIDs(prepared)})
		if fields := s.describeStatement(ctx, prepared); len(fields) > 0 {
			r.send(rowDescription(fields))
		} else {
			r.send(&pgproto3.NoData{})
		}
		return nil
	}

	p, ok := s.portals[msg.Name]
	if !ok {
		return s.extendedError(r, protocolError(codeUndefinedPortal,
			fmt.Sprintf("portal %q does not exist", msg.Name)))
	}
	// Portals are executed eagerly so that the row description matches
	// the rows Execute will return.
	if err := s.runPortal(ctx, p); err != nil {
		return s.extendedError(r, err)
	}
	if len(p.results.Fields) > 0 {
		r.send(rowDescription(p.results.Fields))
	} else {
		r.send(&pgproto3.NoData{})
	}
	return nil
}

func (s *Session) execute(ctx context.Context, r *reply, msg *pgproto3.Execute) error {
	p, ok := s.portals[msg.Portal]
	if !ok {
		return s.extendedError(r, protocolError(codeUndefinedPortal,
			fmt.Sprintf("portal %q does not exist", msg.Portal)))
	}
	if err := s.runPortal(ctx, p); err != nil {
		return s.extendedError(r, err)
	}

	rows := p.results.Rows[p.offset:]
	if msg.MaxRows > 0 && len(rows) > int(msg.MaxRows) {
		sendRows(r, rows[:msg.MaxRows])
		p.offset += int(msg.MaxRows)
		r.send(&pgproto3.PortalSuspended{})
		return nil
	}
	sendRows(r, rows)
	p.offset += len(rows)
	r.send(&pgproto3.CommandComplete{CommandTag: []byte(p.tag)})
	return nil
}

// runPortal executes a portal once and caches its outcome.
func (s *Session) runPortal(ctx context.Context, p *portal) error {
	if !p.executed {
		p.executed = true
		p.results, p.tag, p.err = s.protocolRun(ctx, p.prepared.statement, p.args)
	}
	return p.err
}

func parameterOIDs(prepared *preparedStatement) []uint32 {
	count := max(len(prepared.paramOIDs), prepared.statement.Params)
	oids := make([]uint32, count)
	for i := range oids {
		oids[i] = catalog.Text
		if i < len(prepared.paramOIDs) && prepared.paramOIDs[i] != 0 {
			oids[i] = prepared.paramOIDs[i]
		}
	}
	return oids
}

// describeStatement reports the result columns of a prepared statement
// without running it. It returns nil when they cannot be determined.
func (s *Session) describeStatement(ctx context.Context, prepared *preparedStatement) []Field {
	statement := prepared.statement
	if statement.Kind != sql.Select || s.failed {
		return nil
	}

	if statement.Params == 0 {
		described, err := s.instance.run(ctx, sql.Classify("DESCRIBE "+statement.SQL), nil, nil)
		if err != nil {
			s.instance.logger.Debug("statement description unavailable", "error", err)
			return nil
		}
		fields := make([]Field, 0, len(described.Rows))
		for _, row := range described.Rows {
			if len(row) < 2 {
				return nil
			}
			name, _ := row[0].(string)
			typeName, _ := row[1].(string)
			fields = append(fields, Field{Name: name, DataTypeID: s.instance.typeOID(typeName)})
		}
		return fields
	}

	// A failed lookup would abort an open transaction.
	if s.inTx {
		return nil
	}
	empty := sql.Classify("SELECT * FROM (" + statement.SQL + ") AS described LIMIT 0")
	results, err := s.instance.run(ctx, empty, make([]any, statement.Params), nil)
	if err != nil {
		s.instance.logger.Debug("statement description unavailable", "error", err)
		return nil
	}
	return results.Fields
}

func rowDescription(fields []Field) *pgproto3.RowDescription {
	description := &pgproto3.RowDescription{Fields: make([]pgproto3.FieldDescription, len(fields))}
	for i, field := range fields {
		description.Fields[i] = pgproto3.FieldDescription{
			Name:         []byte(field.Name),
			DataTypeOID:  field.DataTypeID,
			DataTypeSize: typeSize(field.DataTypeID),
			TypeModifier: -1,
			Format:       0,
		}
	}
	return description
}

func sendRows(r *reply, rows [][]any) {
	for _, row := range rows {
		values := make([][]byte, len(row))
		for i, value := range row {
			switch v := value.(type) {
			case nil:
			case string:
				values[i] = []byte(v)
			case []byte:
				values[i] = v
			default:
				values[i] = []byte(fmt.Sprint(v))
			}
		}
		r.send(&pgproto3.DataRow{Values: values})
	}
}

func invalidParam(text string, oid uint32) error {
	return protocolError(codeInvalidParameter,
		fmt.Sprintf("invalid input syntax for type %s: %q", catalog.TypeName(oid), text))
}

// textParam converts a text-format parameter for the engine.
func textParam(text string, oid uint32) (any, error) {
	switch oid {
	case catalog.Bool:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "t", "true", "y", "yes", "on", "1":
			return true, nil
		case "f", "false", "n", "no", "off", "0":
			return false, nil
		}
		return nil, invalidParam(text, oid)
	case catalog.Int2, catalog.Int4, catalog.Int8, catalog.Oid:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, invalidParam(text, oid)
		}
		return n, nil
	case catalog.Float4, catalog.Float8:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, invalidParam(text, oid)
		}
		return f, nil
	case catalog.Bytea:
		if strings.HasPrefix(text, `\x`) {
			b, err := hex.DecodeString(text[2:])
			if err != nil {
				return nil, invalidParam(text, oid)
			}
			return b, nil
		}
		return []byte(text), nil
	default:
		return text, nil
	}
}

// binaryParam converts a binary-format parameter for the engine.
func binaryParam(b []byte, oid uint32) (any, error) {
	switch oid {
	case catalog.Bool:
		if len(b) == 1 {
			return b[0] != 0, nil
		}
	case catalog.Int2:
		if len(b) == 2 {
			return int16(binary.BigEndian.Uint16(b)), nil
		}
	case catalog.Int4:
		if len(b) == 4 {
			return int32(binary.BigEndian.Uint32(b)), nil
		}
	case catalog.Int8:
		if len(b) == 8 {
			return int64(binary.BigEndian.Uint64(b)), nil
		}
	case catalog.Float4:
		if len(b) == 4 {
			return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
		}
	case catalog.Float8:
		if len(b) == 8 {
			return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
		}
	case catalog.UUID:
		if id, err := uuid.FromBytes(b); err == nil {
			return id.String(), nil
		}
	case catalog.Bytea:
		return append([]byte(nil), b...), nil
	case catalog.JSONB:
		if len(b) > 0 && b[0] == 1 {
			return string(b[1:]), nil
		}
	case 0, catalog.Text, catalog.Varchar, catalog.BPChar, catalog.JSON, catalog.Unknown:
		return string(b), nil
	default:
		return nil, protocolError(codeFeatureNotSupported,
			fmt.Sprintf("binary format is not supported for type %s", catalog.TypeName(oid)))
	}
	return nil, protocolError(codeInvalidParameter,
		fmt.Sprintf("invalid binary value for type %s", catalog.TypeName(oid)))
}
