package server

import (
	"github.com/eternalApril/redismock/internal/resp"
)

func sadd(ctx *cmdContext) resp.Value {
	n, err := ctx.storage.SAdd(ctx.arg(0), ctx.argStrings(1)...)
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(n)
}

func srem(ctx *cmdContext) resp.Value {
	n, err := ctx.storage.SRem(ctx.arg(0), ctx.argStrings(1)...)
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(n)
}

func smembers(ctx *cmdContext) resp.Value {
	members, err := ctx.storage.SMembers(ctx.arg(0))
	if err != nil {
		return storageError(err)
	}
	return resp.MakeBulkArray(members)
}

func scard(ctx *cmdContext) resp.Value {
	n, err := ctx.storage.SCard(ctx.arg(0))
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(n)
}

func sismember(ctx *cmdContext) resp.Value {
	ok, err := ctx.storage.SIsMember(ctx.arg(0), ctx.arg(1))
	if err != nil {
		return storageError(err)
	}
	return boolReply(ok)
}
