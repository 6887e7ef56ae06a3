package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/eternalApril/redismock/internal/resp"
	"github.com/eternalApril/redismock/internal/storage"
)

var errSyntax = resp.MakeError("ERR syntax error")

// maxDeadlineMillis is the latest absolute deadline whose remaining time still fits in a time.Duration
const maxDeadlineMillis = math.MaxInt64 / int64(time.Millisecond)

// parseInt parses an integer argument
func parseInt(v resp.Value) (int64, bool) {
	n, err := strconv.ParseInt(v.Text(), 10, 64)
	return n, err == nil
}

// toDuration multiplies n by unit, refusing values that would overflow time.Duration
func toDuration(n int64, unit time.Duration) (time.Duration, bool) {
	if n > math.MaxInt64/int64(unit) || n < math.MinInt64/int64(unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

func ping(ctx *cmdContext) resp.Value {
	switch len(ctx.args) {
	case 0:
		return resp.MakeSimpleString("PONG")
	case 1:
		return resp.MakeBulkString(ctx.arg(0))
	default:
		return resp.MakeErrorWrongNumberOfArguments("PING")
	}
}

func echo(ctx *cmdContext) resp.Value {
	return resp.MakeBulkString(ctx.arg(0))
}

func get(ctx *cmdContext) resp.Value {
	val, ok, err := ctx.storage.Get(ctx.arg(0))
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(val)
}

// set implements SET key value [NX | XX] [EX seconds | PX milliseconds | EXAT unix | PXAT unix-ms | KEEPTTL]
func set(ctx *cmdContext) resp.Value {
	options, errReply, ok := parseSetOptions(ctx.args[2:])
	if !ok {
		return errReply
	}

	if !ctx.storage.Set(ctx.arg(0), ctx.arg(1), options) {
		return resp.MakeNilBulkString()
	}
	return resp.MakeOK()
}

func parseSetOptions(args []resp.Value) (storage.SetOptions, resp.Value, bool) {
	var options storage.SetOptions
	ttlSpecified := false

	for i := 0; i < len(args); i++ {
		switch opt := strings.ToUpper(args[i].Text()); opt {
		case "NX":
			if options.XX {
				return options, errSyntax, false
			}
			options.NX = true

		case "XX":
			if options.NX {
				return options, errSyntax, false
			}
			options.XX = true

		case "KEEPTTL":
			if ttlSpecified {
				return options, errSyntax, false
			}
			options.KeepTTL = true
			ttlSpecified = true

		case "EX", "PX", "EXAT", "PXAT":
			if ttlSpecified || i+1 >= len(args) {
				return options, errSyntax, false
			}
			i++

			n, ok := parseInt(args[i])
			if !ok {
				return options, resp.MakeErrorNotInteger(), false
			}
			if n <= 0 {
				return options, resp.MakeError("ERR invalid expire time in 'set' command"), false
			}

			switch opt {
			case "EX":
				options.TTL, ok = toDuration(n, time.Second)
			case "PX":
				options.TTL, ok = toDuration(n, time.Millisecond)
			case "EXAT":
				ok = n <= maxDeadlineMillis/1000
				options.ExpireAt = time.Unix(n, 0)
			case "PXAT":
				ok = n <= maxDeadlineMillis
				options.ExpireAt = time.UnixMilli(n)
			}
			if !ok {
				return options, resp.MakeError("ERR invalid expire time in 'set' command"), false
			}
			ttlSpecified = true

		default:
			return options, errSyntax, false
		}
	}

	return options, resp.Value{}, true
}

func del(ctx *cmdContext) resp.Value {
	return resp.MakeInteger(ctx.storage.Delete(ctx.argStrings(0)...))
}

func exists(ctx *cmdContext) resp.Value {
	return resp.MakeInteger(ctx.storage.Exists(ctx.argStrings(0)...))
}

func typeCmd(ctx *cmdContext) resp.Value {
	return resp.MakeSimpleString(ctx.storage.Type(ctx.arg(0)).String())
}

func expire(ctx *cmdContext) resp.Value {
	seconds, ok := parseInt(ctx.args[1])
	if !ok {
		return resp.MakeErrorNotInteger()
	}

	d, ok := toDuration(seconds, time.Second)
	if !ok {
		return resp.MakeError("ERR invalid expire time in 'expire' command")
	}

	if ctx.storage.Expire(ctx.arg(0), d) {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

// ttl replies -2 for a missing key, -1 for a key without deadline, else whole seconds left (floored)
func ttl(ctx *cmdContext) resp.Value {
	return expiryReply(ctx, time.Second)
}

func pttl(ctx *cmdContext) resp.Value {
	return expiryReply(ctx, time.Millisecond)
}

func expiryReply(ctx *cmdContext, unit time.Duration) resp.Value {
	remaining, status := ctx.storage.Expiry(ctx.arg(0))
	if status != storage.ExpActive {
		return resp.MakeInteger(int64(status))
	}
	return resp.MakeInteger(int64(remaining / unit))
}

func persist(ctx *cmdContext) resp.Value {
	return resp.MakeInteger(ctx.storage.Persist(ctx.arg(0)))
}
