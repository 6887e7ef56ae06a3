package server

import (
	"github.com/eternalApril/redismock/internal/resp"
)

func lpush(ctx *cmdContext) resp.Value {
	n, err := ctx.storage.LPush(ctx.arg(0), ctx.argStrings(1)...)
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(n)
}

func rpush(ctx *cmdContext) resp.Value {
	n, err := ctx.storage.RPush(ctx.arg(0), ctx.argStrings(1)...)
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(n)
}

func lpop(ctx *cmdContext) resp.Value {
	return popReply(ctx.storage.LPop(ctx.arg(0)))
}

func rpop(ctx *cmdContext) resp.Value {
	return popReply(ctx.storage.RPop(ctx.arg(0)))
}

func popReply(val string, ok bool, err error) resp.Value {
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(val)
}

func lrange(ctx *cmdContext) resp.Value {
	start, ok := parseInt(ctx.args[1])
	if !ok {
		return resp.MakeErrorNotInteger()
	}
	stop, ok := parseInt(ctx.args[2])
	if !ok {
		return resp.MakeErrorNotInteger()
	}

	items, err := ctx.storage.LRange(ctx.arg(0), start, stop)
	if err != nil {
		return storageError(err)
	}
	return resp.MakeBulkArray(items)
}

func llen(ctx *cmdContext) resp.Value {
	n, err := ctx.storage.LLen(ctx.arg(0))
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(n)
}
