package server

import (
	"github.com/eternalApril/redismock/internal/resp"
)

// subscriptionReply builds the [action, channel, count] confirmation
func subscriptionReply(action string, channel resp.Value, count int) resp.Value {
	return resp.MakeArray([]resp.Value{
		resp.MakeBulkString(action),
		channel,
		resp.MakeInteger(int64(count)),
	})
}

// replies returns a single reply as is and several as a multi-frame value
func replies(values []resp.Value) resp.Value {
	if len(values) == 1 {
		return values[0]
	}
	return resp.MakeMulti(values)
}

func noConnection(name string) resp.Value {
	return resp.MakeError("ERR " + name + " requires a client connection")
}

func (e *Engine) subscribe(ctx *cmdContext) resp.Value {
	if ctx.caller == nil {
		return noConnection(ctx.name)
	}

	out := make([]resp.Value, 0, len(ctx.args))
	for _, channel := range ctx.argStrings(0) {
		count := e.hub.Subscribe(ctx.caller, channel)
		out = append(out, subscriptionReply("subscribe", resp.MakeBulkString(channel), count))
	}
	return replies(out)
}

// unsubscribe without arguments leaves every channel of the caller
func (e *Engine) unsubscribe(ctx *cmdContext) resp.Value {
	if ctx.caller == nil {
		return noConnection(ctx.name)
	}

	channels := ctx.argStrings(0)
	if len(channels) == 0 {
		channels = ctx.caller.Membership().Channels()
	}

	if len(channels) == 0 {
		return subscriptionReply("unsubscribe", resp.MakeNilBulkString(), 0)
	}

	out := make([]resp.Value, 0, len(channels))
	for _, channel := range channels {
		count := e.hub.Unsubscribe(ctx.caller, channel)
		out = append(out, subscriptionReply("unsubscribe", resp.MakeBulkString(channel), count))
	}
	return replies(out)
}

func (e *Engine) publish(ctx *cmdContext) resp.Value {
	return resp.MakeInteger(int64(e.hub.Publish(ctx.arg(0), ctx.arg(1))))
}
