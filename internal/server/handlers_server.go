package server

import (
	"strconv"
	"strings"

	"github.com/eternalApril/redismock/internal/resp"
	"go.uber.org/zap"
)

const version = "1.0.0"

var errPersistenceDisabled = resp.MakeError("ERR persistence is disabled")

// save exports the keyspace under the dispatch lock and writes it after the lock is released,
// so other commands are not blocked by disk I/O. Write failures are reported to the caller
func (e *Engine) save(ctx *cmdContext) resp.Value {
	if e.snapshot == nil {
		return errPersistenceDisabled
	}

	dump := ctx.storage.Export()
	ctx.post = func() resp.Value {
		if err := e.snapshot.Save(dump); err != nil {
			e.logger.Error("SAVE failed", zap.Error(err))
			return resp.MakeError("ERR " + err.Error())
		}
		return resp.MakeOK()
	}

	return resp.MakeOK()
}

func (e *Engine) bgsave(ctx *cmdContext) resp.Value {
	if e.snapshot == nil {
		return errPersistenceDisabled
	}

	dump := ctx.storage.Export()
	go func() {
		if err := e.snapshot.Save(dump); err != nil {
			e.logger.Error("BGSAVE failed", zap.Error(err))
		}
	}()

	return resp.MakeSimpleString("Background saving started")
}

// info renders the report; the optional section argument is accepted and ignored
func (e *Engine) info(ctx *cmdContext) resp.Value {
	var rt RuntimeStats
	if e.stats != nil {
		rt = e.stats.Snapshot()
	}

	itoa := func(n int64) string { return strconv.FormatInt(n, 10) }

	lines := []string{
		"# Server",
		"redis_mock_version:" + version,
		"uptime_in_seconds:" + itoa(int64(rt.Uptime.Seconds())),
		"connected_clients:" + itoa(rt.ConnectedClients),
		"",
		"# Stats",
		"total_commands_processed:" + itoa(rt.TotalCommands),
		"total_connections_received:" + itoa(rt.TotalConnections),
		"",
		"# Keys",
		"keys:" + strconv.Itoa(ctx.storage.Len()),
		"",
		"# PubSub",
		"pubsub_channels:" + strconv.Itoa(e.hub.Channels()),
		"pubsub_clients:" + strconv.Itoa(e.hub.Clients()),
	}

	return resp.MakeBulkString(strings.Join(lines, "\r\n"))
}

func dbsize(ctx *cmdContext) resp.Value {
	return resp.MakeInteger(int64(ctx.storage.Len()))
}

// flushall accepts and ignores the ASYNC / SYNC modifier
func flushall(ctx *cmdContext) resp.Value {
	if len(ctx.args) > 1 {
		return errSyntax
	}
	if len(ctx.args) == 1 {
		mode := strings.ToUpper(ctx.arg(0))
		if mode != "ASYNC" && mode != "SYNC" {
			return errSyntax
		}
	}

	ctx.storage.Flush()
	return resp.MakeOK()
}
