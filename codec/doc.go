// Package codec converts values crossing the boundary between the adapter
// and the engine.
//
// Decoding turns the engine's text output into canonical Go values. The
// decoders are keyed by native type identifier and handed to the engine, so
// they run while rows are materialized:
//
//	results, err := instance.Query(ctx, sql, args, &ps.QueryOptions{Parsers: codec.Parsers()})
//
// JSON and JSONB values are not parsed. They are returned as
// json.RawMessage: SQL NULL decodes to nil, the JSON literal null decodes to
// json.RawMessage("null"), and any other document to its raw text.
//
// Encoding prepares outbound arguments according to their declared ArgType:
//
//	args, err := codec.EncodeArgs(query.Args, query.ArgTypes)
package codec
