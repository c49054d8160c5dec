package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nickyhof/EmbedDB"
	"github.com/nickyhof/EmbedDB/config"
	"github.com/nickyhof/EmbedDB/core"
	"github.com/nickyhof/EmbedDB/db"
)

var errInvalidHandle = errors.New("invalid handle")

// Response is the JSON envelope every call returns to the host.
type Response struct {
	Success bool            `json:"success"`
	Error   *ErrorResponse  `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// ErrorResponse carries the kind of a tagged error so the host can branch
// on it. An empty Kind means the error is fatal.
type ErrorResponse struct {
	Kind    string            `json:"kind,omitempty"`
	Message string            `json:"message"`
	Engine  *core.EngineError `json:"engine,omitempty"`
}

type handleResult struct {
	Handle int `json:"handle"`
}

type transactionResult struct {
	Handle  int                     `json:"handle"`
	Options core.TransactionOptions `json:"options"`
}

type executeResult struct {
	AffectedRows int64 `json:"affectedRows"`
}

type transactionRequest struct {
	IsolationLevel string `json:"isolationLevel,omitempty"`
}

// registry owns the instances and transactions handed out to the host.
type registry struct {
	mu           sync.Mutex
	next         int
	instances    map[int]*EmbedDB.Instance
	transactions map[int]*db.Transaction
}

func newRegistry() *registry {
	return &registry{
		next:         1,
		instances:    make(map[int]*EmbedDB.Instance),
		transactions: make(map[int]*db.Transaction),
	}
}

func (r *registry) allocate() int {
	handle := r.next
	r.next++
	return handle
}

func (r *registry) instance(handle int) (*EmbedDB.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	instance, ok := r.instances[handle]
	if !ok {
		return nil, errInvalidHandle
	}
	return instance, nil
}

func (r *registry) transaction(handle int) (*db.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[handle]
	if !ok {
		return nil, errInvalidHandle
	}
	return tx, nil
}

// open starts an instance from a YAML or JSON configuration. An empty
// configuration opens an in-memory database.
func (r *registry) open(ctx context.Context, configText string) []byte {
	cfg := config.Default()
	if strings.TrimSpace(configText) != "" {
		var err error
		if cfg, err = config.Parse([]byte(configText)); err != nil {
			return errorResponse(err)
		}
	}

	instance, err := EmbedDB.Open(ctx, cfg)
	if err != nil {
		return errorResponse(err)
	}

	r.mu.Lock()
	handle := r.allocate()
	r.instances[handle] = instance
	r.mu.Unlock()
	return okResponse(handleResult{Handle: handle})
}

func (r *registry) close(handle int) []byte {
	r.mu.Lock()
	instance, ok := r.instances[handle]
	delete(r.instances, handle)
	r.mu.Unlock()
	if !ok {
		return errorResponse(errInvalidHandle)
	}
	if err := instance.Close(); err != nil {
		return errorResponse(err)
	}
	return okResponse(nil)
}

func (r *registry) queryRaw(ctx context.Context, handle int, queryJSON string) []byte {
	instance, err := r.instance(handle)
	if err != nil {
		return errorResponse(err)
	}
	return runQuery(ctx, instance.Adapter, queryJSON)
}

func (r *registry) executeRaw(ctx context.Context, handle int, queryJSON string) []byte {
	instance, err := r.instance(handle)
	if err != nil {
		return errorResponse(err)
	}
	return runExecute(ctx, instance.Adapter, queryJSON)
}

func (r *registry) startTransaction(ctx context.Context, handle int, requestJSON string) []byte {
	instance, err := r.instance(handle)
	if err != nil {
		return errorResponse(err)
	}

	var req transactionRequest
	if strings.TrimSpace(requestJSON) != "" {
		if err := json.Unmarshal([]byte(requestJSON), &req); err != nil {
			return errorResponse(fmt.Errorf("invalid transaction request: %w", err))
		}
	}

	var tx *db.Transaction
	if req.IsolationLevel == "" {
		tx, err = instance.Transaction(ctx)
	} else {
		var level core.IsolationLevel
		if level, err = core.ParseIsolationLevel(req.IsolationLevel); err != nil {
			return errorResponse(err)
		}
		var txCtx *db.TransactionContext
		if txCtx, err = instance.Adapter.TransactionContext(ctx); err == nil {
			tx, err = txCtx.StartTransaction(ctx, &level)
		}
	}
	if err != nil {
		return errorResponse(err)
	}

	r.mu.Lock()
	txHandle := r.allocate()
	r.transactions[txHandle] = tx
	r.mu.Unlock()
	return okResponse(transactionResult{Handle: txHandle, Options: tx.Options()})
}

func (r *registry) txQueryRaw(ctx context.Context, handle int, queryJSON string) []byte {
	tx, err := r.transaction(handle)
	if err != nil {
		return errorResponse(err)
	}
	return runQuery(ctx, tx, queryJSON)
}

func (r *registry) txExecuteRaw(ctx context.Context, handle int, queryJSON string) []byte {
	tx, err := r.transaction(handle)
	if err != nil {
		return errorResponse(err)
	}
	return runExecute(ctx, tx, queryJSON)
}

// finish commits or rolls back a transaction and forgets its handle.
func (r *registry) finish(ctx context.Context, handle int, commit bool) []byte {
	r.mu.Lock()
	tx, ok := r.transactions[handle]
	delete(r.transactions, handle)
	r.mu.Unlock()
	if !ok {
		return errorResponse(errInvalidHandle)
	}

	var err error
	if commit {
		err = tx.Commit(ctx)
	} else {
		err = tx.Rollback(ctx)
	}
	if err != nil {
		return errorResponse(err)
	}
	return okResponse(nil)
}

type queryRunner interface {
	QueryRaw(ctx context.Context, query core.Query) (*core.ResultSet, error)
	ExecuteRaw(ctx context.Context, query core.Query) (int64, error)
}

func runQuery(ctx context.Context, q queryRunner, queryJSON string) []byte {
	query, err := decodeQuery(queryJSON)
	if err != nil {
		return errorResponse(err)
	}
	rs, err := q.QueryRaw(ctx, query)
	if err != nil {
		return errorResponse(err)
	}
	return okResponse(rs)
}

func runExecute(ctx context.Context, q queryRunner, queryJSON string) []byte {
	query, err := decodeQuery(queryJSON)
	if err != nil {
		return errorResponse(err)
	}
	affected, err := q.ExecuteRaw(ctx, query)
	if err != nil {
		return errorResponse(err)
	}
	return okResponse(executeResult{AffectedRows: affected})
}

// decodeQuery reads a core.Query. Numbers keep their integer form so
// large ids survive the trip.
func decodeQuery(queryJSON string) (core.Query, error) {
	var query core.Query
	dec := json.NewDecoder(bytes.NewReader([]byte(queryJSON)))
	dec.UseNumber()
	if err := dec.Decode(&query); err != nil {
		return query, fmt.Errorf("invalid query: %w", err)
	}
	for i, arg := range query.Args {
		query.Args[i] = numbers(arg)
	}
	return query, nil
}

func numbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		for i := range v {
			v[i] = numbers(v[i])
		}
		return v
	}
	return v
}

func okResponse(result any) []byte {
	resp := Response{Success: true}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return errorResponse(err)
		}
		resp.Result = data
	}
	data, _ := json.Marshal(resp)
	return data
}

func errorResponse(err error) []byte {
	e := &ErrorResponse{Kind: core.KindOf(err), Message: err.Error()}
	var engineErr *core.EngineError
	if errors.As(err, &engineErr) {
		e.Engine = engineErr
	}
	data, _ := json.Marshal(Response{Error: e})
	return data
}
