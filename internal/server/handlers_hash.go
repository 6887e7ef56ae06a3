package server

import (
	"github.com/eternalApril/redismock/internal/resp"
)

// hset implements HSET key field value [field value ...]
func hset(ctx *cmdContext) resp.Value {
	if len(ctx.args)%2 != 1 {
		return resp.MakeErrorWrongNumberOfArguments(ctx.name)
	}

	fields := make(map[string]string, len(ctx.args)/2)
	for i := 1; i < len(ctx.args); i += 2 {
		fields[ctx.arg(i)] = ctx.arg(i + 1)
	}

	created, err := ctx.storage.HSet(ctx.arg(0), fields)
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(created)
}

func hget(ctx *cmdContext) resp.Value {
	val, ok, err := ctx.storage.HGet(ctx.arg(0), ctx.arg(1))
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(val)
}

// hgetall flattens the hash into [field, value, field, value, ...]
func hgetall(ctx *cmdContext) resp.Value {
	all, err := ctx.storage.HGetAll(ctx.arg(0))
	if err != nil {
		return storageError(err)
	}

	flat := make([]resp.Value, 0, len(all)*2)
	for field, value := range all {
		flat = append(flat, resp.MakeBulkString(field), resp.MakeBulkString(value))
	}
	return resp.MakeArray(flat)
}

func hdel(ctx *cmdContext) resp.Value {
	removed, err := ctx.storage.HDel(ctx.arg(0), ctx.argStrings(1)...)
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(removed)
}

func hlen(ctx *cmdContext) resp.Value {
	n, err := ctx.storage.HLen(ctx.arg(0))
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(n)
}

func hexists(ctx *cmdContext) resp.Value {
	ok, err := ctx.storage.HExists(ctx.arg(0), ctx.arg(1))
	if err != nil {
		return storageError(err)
	}
	return boolReply(ok)
}

func hkeys(ctx *cmdContext) resp.Value {
	keys, err := ctx.storage.HKeys(ctx.arg(0))
	if err != nil {
		return storageError(err)
	}
	return resp.MakeBulkArray(keys)
}

func hvals(ctx *cmdContext) resp.Value {
	vals, err := ctx.storage.HVals(ctx.arg(0))
	if err != nil {
		return storageError(err)
	}
	return resp.MakeBulkArray(vals)
}

func boolReply(ok bool) resp.Value {
	if ok {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}
