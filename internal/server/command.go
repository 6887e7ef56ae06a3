package server

import (
	"github.com/eternalApril/redismock/internal/pubsub"
	"github.com/eternalApril/redismock/internal/resp"
	"github.com/eternalApril/redismock/internal/storage"
	"github.com/samber/lo"
)

// cmdContext carries everything a handler may touch for a single request
type cmdContext struct {
	name    string            // canonical upper-case command name
	args    []resp.Value      // arguments without the command name
	storage storage.Storage   // shared keyspace
	caller  pubsub.Subscriber // nil when the request has no connection behind it
	post    func() resp.Value // optional work run after the dispatch lock is released; its result is the reply
}

type command interface {
	execute(ctx *cmdContext) resp.Value
}

type commandFunc func(ctx *cmdContext) resp.Value

func (c commandFunc) execute(ctx *cmdContext) resp.Value {
	return c(ctx)
}

// arg returns the i-th argument as a string
func (ctx *cmdContext) arg(i int) string {
	return ctx.args[i].Text()
}

// argStrings returns the arguments starting at index from as strings
func (ctx *cmdContext) argStrings(from int) []string {
	return lo.Map(ctx.args[from:], func(a resp.Value, _ int) string {
		return a.Text()
	})
}
