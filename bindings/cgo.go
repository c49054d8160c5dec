package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"unsafe"
)

var handles = newRegistry()

func response(data []byte) *C.char {
	return C.CString(string(data))
}

//export embeddb_open
func embeddb_open(configText *C.char) *C.char {
	return response(handles.open(context.Background(), C.GoString(configText)))
}

//export embeddb_close
func embeddb_close(handle C.int) *C.char {
	return response(handles.close(int(handle)))
}

//export embeddb_query_raw
func embeddb_query_raw(handle C.int, query *C.char) *C.char {
	return response(handles.queryRaw(context.Background(), int(handle), C.GoString(query)))
}

//export embeddb_execute_raw
func embeddb_execute_raw(handle C.int, query *C.char) *C.char {
	return response(handles.executeRaw(context.Background(), int(handle), C.GoString(query)))
}

//export embeddb_start_transaction
func embeddb_start_transaction(handle C.int, request *C.char) *C.char {
	return response(handles.startTransaction(context.Background(), int(handle), C.GoString(request)))
}

//export embeddb_tx_query_raw
func embeddb_tx_query_raw(handle C.int, query *C.char) *C.char {
	return response(handles.txQueryRaw(context.Background(), int(handle), C.GoString(query)))
}

//export embeddb_tx_execute_raw
func embeddb_tx_execute_raw(handle C.int, query *C.char) *C.char {
	return response(handles.txExecuteRaw(context.Background(), int(handle), C.GoString(query)))
}

//export embeddb_commit
func embeddb_commit(handle C.int) *C.char {
	return response(handles.finish(context.Background(), int(handle), true))
}

//export embeddb_rollback
func embeddb_rollback(handle C.int) *C.char {
	return response(handles.finish(context.Background(), int(handle), false))
}

//export embeddb_free
func embeddb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func main() {}
