package fxasynq

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mintaka-io/fxasynq/client"
	"github.com/mintaka-io/fxasynq/config"
	"github.com/mintaka-io/fxasynq/events"
	"github.com/mintaka-io/fxasynq/logger"
	"github.com/mintaka-io/fxasynq/registrar"
	"github.com/mintaka-io/fxasynq/registry"
	"github.com/mintaka-io/fxasynq/task"
)

// TasksGroup is the fx value group task providers are collected from.
const TasksGroup = "fxasynq.tasks"

// Module provides the shared integration components: settings, logger, the
// asynq client, server, serve mux and inspector, the task registry, the
// event bus, the sender, and the registrar. Task registration runs as an
// invoke, so a misdeclared component fails application startup.
var Module = fx.Module("fxasynq",
	fx.Provide(
		config.Load,
		provideLogger,
		provideClient,
		provideServer,
		provideInspector,
		asynq.NewServeMux,
		events.New,
		fx.Annotate(registry.New, fx.As(new(registry.Registry))),
		provideSender,
		func(s *client.Sender) client.Enqueuer { return s },
		registrar.New,
	),
	fx.Invoke(registerTasks),
	fx.Invoke(closeOnShutdown),
)

// RunWorker starts the asynq server against the serve mux when the fx app
// starts and shuts it down gracefully on stop. Worker processes add this
// option; pure client processes leave it out.
var RunWorker = fx.Invoke(runServer)

// ProvideTasks feeds component constructors into the task discovery group.
// Each constructor must return a type implementing task.Provider.
func ProvideTasks(ctors ...any) fx.Option {
	opts := make([]fx.Option, 0, len(ctors))
	for _, ctor := range ctors {
		opts = append(opts, fx.Provide(
			fx.Annotate(ctor,
				fx.As(new(task.Provider)),
				fx.ResultTags(`group:"fxasynq.tasks"`),
			),
		))
	}
	return fx.Options(opts...)
}

// ProvideSender provides a *T with all of its task-tagged sender fields
// bound to the queue. T is the declarative client struct.
func ProvideSender[T any]() fx.Option {
	return fx.Provide(func(e client.Enqueuer) (*T, error) {
		c := new(T)
		if err := client.Bind(c, e); err != nil {
			return nil, err
		}
		return c, nil
	})
}

func provideLogger(s *config.Settings) (*zap.Logger, error) {
	return logger.New(s.Environment)
}

func provideClient(s *config.Settings) (*asynq.Client, error) {
	opt, err := s.BrokerConnOpt()
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}

func provideSender(c *asynq.Client, reg registry.Registry, bus events.Bus, l *zap.Logger) *client.Sender {
	return client.NewSender(c, reg, bus, l)
}

func provideServer(s *config.Settings, l *zap.Logger) (*asynq.Server, error) {
	opt, err := s.BrokerConnOpt()
	if err != nil {
		return nil, err
	}
	cfg := asynq.Config{
		Concurrency:     s.Concurrency,
		Queues:          s.Queues,
		StrictPriority:  s.StrictPriority,
		ShutdownTimeout: s.ShutdownTimeout,
		Logger:          logger.NewAdapter(l),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			l.Error("task processing error", zap.String("task", t.Type()), zap.Error(err))
		}),
	}
	return asynq.NewServer(opt, cfg), nil
}

func provideInspector(s *config.Settings) (*asynq.Inspector, error) {
	opt, err := s.ResultConnOpt()
	if err != nil {
		return nil, err
	}
	return asynq.NewInspector(opt), nil
}

type registerParams struct {
	fx.In

	Registrar *registrar.Registrar
	Providers []task.Provider `group:"fxasynq.tasks"`
}

func registerTasks(p registerParams) error {
	return p.Registrar.RegisterAll(p.Providers...)
}

func runServer(lc fx.Lifecycle, srv *asynq.Server, mux *asynq.ServeMux, l *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			l.Info("starting task worker")
			return srv.Start(mux)
		},
		OnStop: func(ctx context.Context) error {
			l.Info("stopping task worker")
			srv.Shutdown()
			return nil
		},
	})
}

func closeOnShutdown(lc fx.Lifecycle, sender *client.Sender, insp *asynq.Inspector, bus events.Bus) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			bus.Close()
			return errors.Join(sender.Close(), insp.Close())
		},
	})
}
