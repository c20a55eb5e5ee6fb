package functions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/events"
	"github.com/signalist/signalist/internal/scheduler"
)

// ErrUnknownEvent is returned by Send for event names no one declared
var ErrUnknownEvent = errors.New("unknown event")

// Runtime dispatches events and schedules to registered functions.
// Each triggered function runs on its own goroutine with its own timeout;
// a failure or panic in one never affects another.
type Runtime struct {
	registry  *Registry
	store     *RunStore
	events    *events.Manager
	scheduler *scheduler.Scheduler
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// NewRuntime creates a runtime. store and sched may be nil.
func NewRuntime(registry *Registry, store *RunStore, manager *events.Manager, sched *scheduler.Scheduler, log zerolog.Logger) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		registry:  registry,
		store:     store,
		events:    manager,
		scheduler: sched,
		log:       log.With().Str("component", "functions").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Registry returns the function registry
func (rt *Runtime) Registry() *Registry {
	return rt.registry
}

// Start subscribes every function to its events and registers cron triggers.
// Calling Start twice is a no-op.
func (rt *Runtime) Start() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.started {
		return nil
	}

	for _, fn := range rt.registry.All() {
		fn := fn
		for _, et := range fn.Events {
			rt.events.Bus().Subscribe(et, func(e events.Event) {
				rt.Invoke(rt.ctx, fn, string(e.Type), &e)
			})
		}

		if fn.Cron != "" && rt.scheduler != nil {
			err := rt.scheduler.AddJob(fn.Cron, scheduler.FuncJob{
				JobName: fn.ID,
				Fn: func() error {
					run := rt.Invoke(rt.ctx, fn, TriggerCron, nil)
					if run.Status == StatusFailed {
						return errors.New(run.Message)
					}
					return nil
				},
			})
			if err != nil {
				return fmt.Errorf("failed to schedule function %s: %w", fn.ID, err)
			}
		}

		rt.log.Info().Str("function", fn.ID).Interface("events", fn.Events).Str("cron", fn.Cron).Msg("Function registered")
	}

	rt.started = true
	return nil
}

// Stop cancels in-flight runs
func (rt *Runtime) Stop() {
	rt.cancel()
}

// Send emits a declared event and returns its id. Functions react asynchronously.
func (rt *Runtime) Send(eventType events.EventType, data map[string]interface{}) (string, error) {
	if !events.Known(eventType) {
		return "", fmt.Errorf("%w: %s", ErrUnknownEvent, eventType)
	}
	return rt.events.Emit(eventType, "functions", data), nil
}

// Invoke runs fn once, records the run and emits app/function.finished.
// A panic inside fn is recovered and recorded as a failure.
func (rt *Runtime) Invoke(ctx context.Context, fn *Function, trigger string, event *events.Event) RunRecord {
	run := RunRecord{
		ID:         uuid.NewString(),
		FunctionID: fn.ID,
		Trigger:    trigger,
		StartedAt:  time.Now(),
	}

	runCtx, cancel := context.WithTimeout(ctx, fn.timeout())
	defer cancel()

	message, err := rt.call(runCtx, fn, event)
	run.DurationMs = time.Since(run.StartedAt).Milliseconds()
	run.Message = message
	if err != nil {
		run.Status = StatusFailed
		run.Message = err.Error()
		rt.log.Error().Err(err).Str("function", fn.ID).Str("trigger", trigger).Msg("Function failed")
		rt.events.EmitError("functions", err, map[string]interface{}{"function_id": fn.ID, "trigger": trigger})
	} else {
		run.Status = StatusCompleted
		rt.log.Info().Str("function", fn.ID).Str("trigger", trigger).Int64("duration_ms", run.DurationMs).Str("message", message).Msg("Function completed")
	}

	if rt.store != nil {
		// Recording outlives a cancelled run context
		recCtx, recCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.store.Record(recCtx, run); err != nil {
			rt.log.Warn().Err(err).Str("function", fn.ID).Msg("Failed to record run")
		}
		recCancel()
	}

	rt.events.EmitTyped("functions", &events.FunctionFinishedData{
		FunctionID: fn.ID,
		Trigger:    trigger,
		Status:     run.Status,
		Message:    run.Message,
		DurationMs: run.DurationMs,
	})

	return run
}

func (rt *Runtime) call(ctx context.Context, fn *Function, event *events.Event) (message string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("function %s panicked: %v", fn.ID, r)
		}
	}()
	return fn.Run(ctx, event)
}
