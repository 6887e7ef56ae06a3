package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eternalApril/redismock/internal/config"
	"github.com/eternalApril/redismock/internal/persistence"
	"github.com/eternalApril/redismock/internal/pubsub"
	"github.com/eternalApril/redismock/internal/resp"
	"github.com/eternalApril/redismock/internal/storage"
	"go.uber.org/zap"
)

// Engine coordinates the execution of commands and manages the background tasks of the repository.
// Every command runs under mu, so commands never interleave with each other
type Engine struct {
	commands map[string]command       // Registry of available commands (the key is the command name in uppercase)
	storage  storage.Storage          // Interface to the underlying KV storage
	hub      *pubsub.Hub              // Channel subscriptions
	snapshot *persistence.Snapshotter // nil when persistence is disabled
	stats    StatsProvider            // Runtime counters owned by the connection layer
	cfg      *config.Config           // Configuration engine
	mu       sync.Mutex               // Dispatch lock
	stopSave context.CancelFunc       // Stops the auto-save loop
	saveDone chan struct{}            // Closed when the auto-save loop has returned
	stopOnce sync.Once                // Ensures that the stop happens only once
	logger   *zap.Logger
}

// NewEngine initializes the engine, registers the commands and, if persistence is enabled,
// restores the snapshot and starts periodic saving
func NewEngine(s storage.Storage, hub *pubsub.Hub, stats StatsProvider, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	engine := Engine{
		commands: make(map[string]command),
		storage:  s,
		hub:      hub,
		stats:    stats,
		cfg:      cfg,
		logger:   logger,
	}
	engine.registerBasicCommand()

	if cfg.Persistence.Enabled {
		engine.snapshot = persistence.NewSnapshotter(cfg.Persistence.Filename, logger)

		if err := engine.snapshot.Load(s); err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}

		if cfg.Persistence.Interval > 0 {
			ctx, cancel := context.WithCancel(context.Background())
			engine.stopSave = cancel
			engine.saveDone = make(chan struct{})
			go func() {
				defer close(engine.saveDone)
				engine.snapshot.RunAutoSave(ctx, cfg.Persistence.Interval, s)
			}()
		}
	}

	return &engine, nil
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerBasicCommand fills the registry with standard commands
func (e *Engine) registerBasicCommand() {
	e.register("PING", commandFunc(ping))
	e.register("ECHO", commandFunc(echo))
	e.register("COMMAND", commandFunc(commandCmd))

	e.register("GET", commandFunc(get))
	e.register("SET", commandFunc(set))
	e.register("DEL", commandFunc(del))
	e.register("EXISTS", commandFunc(exists))
	e.register("TYPE", commandFunc(typeCmd))
	e.register("EXPIRE", commandFunc(expire))
	e.register("TTL", commandFunc(ttl))
	e.register("PTTL", commandFunc(pttl))
	e.register("PERSIST", commandFunc(persist))

	e.register("HSET", commandFunc(hset))
	e.register("HGET", commandFunc(hget))
	e.register("HGETALL", commandFunc(hgetall))
	e.register("HDEL", commandFunc(hdel))
	e.register("HLEN", commandFunc(hlen))
	e.register("HEXISTS", commandFunc(hexists))
	e.register("HKEYS", commandFunc(hkeys))
	e.register("HVALS", commandFunc(hvals))

	e.register("LPUSH", commandFunc(lpush))
	e.register("RPUSH", commandFunc(rpush))
	e.register("LPOP", commandFunc(lpop))
	e.register("RPOP", commandFunc(rpop))
	e.register("LRANGE", commandFunc(lrange))
	e.register("LLEN", commandFunc(llen))

	e.register("SADD", commandFunc(sadd))
	e.register("SREM", commandFunc(srem))
	e.register("SMEMBERS", commandFunc(smembers))
	e.register("SCARD", commandFunc(scard))
	e.register("SISMEMBER", commandFunc(sismember))

	e.register("SUBSCRIBE", commandFunc(e.subscribe))
	e.register("UNSUBSCRIBE", commandFunc(e.unsubscribe))
	e.register("PUBLISH", commandFunc(e.publish))

	e.register("SAVE", commandFunc(e.save))
	e.register("BGSAVE", commandFunc(e.bgsave))
	e.register("INFO", commandFunc(e.info))
	e.register("DBSIZE", commandFunc(dbsize))
	e.register("FLUSHALL", commandFunc(flushall))
	e.register("FLUSHDB", commandFunc(flushall))
}

// Dispatch runs a full request (command name first) on behalf of caller.
// caller may be nil, in which case commands that need a connection are rejected
func (e *Engine) Dispatch(caller pubsub.Subscriber, request []resp.Value) resp.Value {
	if len(request) == 0 {
		return resp.MakeError("ERR empty command")
	}

	return e.execute(caller, request[0].Text(), request[1:])
}

// Execute finds the command by name and executes it with the passed arguments.
// If the command is not found, returns an error in the RESP format
func (e *Engine) Execute(name string, args []resp.Value) resp.Value {
	return e.execute(nil, name, args)
}

func (e *Engine) execute(caller pubsub.Subscriber, name string, args []resp.Value) resp.Value {
	canonical := strings.ToUpper(name)

	if e.logger.Core().Enabled(zap.DebugLevel) {
		// Log the command name and number of args
		e.logger.Debug("executing command",
			zap.String("cmd", canonical),
			zap.Int("args_count", len(args)),
		)
	}

	cmd, ok := e.commands[canonical]
	if !ok {
		return resp.MakeErrorUnknownCommand(name)
	}

	if !checkArity(canonical, len(args)+1) {
		return resp.MakeErrorWrongNumberOfArguments(canonical)
	}

	ctx := &cmdContext{
		name:    canonical,
		args:    args,
		storage: e.storage,
		caller:  caller,
	}

	e.mu.Lock()
	res := cmd.execute(ctx)
	e.mu.Unlock()

	if ctx.post != nil {
		res = ctx.post()
	}

	return res
}

// Disconnect drops every subscription held by sub. Called by the connection layer on close
func (e *Engine) Disconnect(sub pubsub.Subscriber) {
	channels := e.hub.UnsubscribeAll(sub)
	if len(channels) > 0 && e.logger.Core().Enabled(zap.DebugLevel) {
		e.logger.Debug("subscriber removed", zap.Strings("channels", channels))
	}
}

// Shutdown stops background work and, when persistence is enabled, writes a final snapshot
func (e *Engine) Shutdown() error {
	var err error

	e.stopOnce.Do(func() {
		if e.stopSave != nil {
			e.stopSave()
			<-e.saveDone
			e.logger.Info("auto-save stopped")
		}

		if e.snapshot == nil {
			return
		}

		e.mu.Lock()
		dump := e.storage.Export()
		e.mu.Unlock()

		if saveErr := e.snapshot.Save(dump); saveErr != nil {
			err = fmt.Errorf("final snapshot: %w", saveErr)
		}
	})

	return err
}

// storageError converts a storage failure into an error reply
func storageError(err error) resp.Value {
	if errors.Is(err, storage.ErrWrongType) {
		return resp.MakeError(storage.ErrWrongType.Error())
	}
	return resp.MakeError("ERR " + err.Error())
}
