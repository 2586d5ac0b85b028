/*
Package fxasynq bridges the fx dependency-injection container with the asynq
distributed task queue, so task handlers and task-sending clients are
declared as container-managed components instead of free functions.

Worker side, a component exposes its tasks through task.Provider and is fed
into the container with ProvideTasks; the registrar discovers every
definition at startup and registers it with the asynq serve mux:

	type EmailTasks struct {
		mailer *MailerService
	}

	func NewEmailTasks(mailer *MailerService) *EmailTasks {
		return &EmailTasks{mailer: mailer}
	}

	func (t *EmailTasks) TaskDefinitions() []task.Definition {
		return []task.Definition{
			task.NewTask("tasks.send_email", t.sendEmail, asynq.Queue("default")),
		}
	}

	func (t *EmailTasks) sendEmail(ctx context.Context, p EmailPayload) error {
		return t.mailer.Send(ctx, p.To, p.Body)
	}

	app := fx.New(
		fxasynq.Module,
		fxasynq.RunWorker,
		fx.Provide(NewMailerService),
		fxasynq.ProvideTasks(NewEmailTasks),
	)
	app.Run()

Client side, a struct declares its sender methods as func-typed fields with
task tags; the bodies are never written, the binder redirects every call into
the queue's enqueue call:

	type EmailClient struct {
		SendEmail func(ctx context.Context, p EmailPayload) (*asynq.TaskInfo, error) `task:"tasks.send_email" queue:"default"`
	}

	app := fx.New(
		fxasynq.Module,
		fxasynq.ProvideSender[EmailClient](),
		fx.Invoke(func(c *EmailClient) {
			c.SendEmail(context.Background(), EmailPayload{To: "a@b.c"})
		}),
	)

All broker communication, retry, backoff, and scheduling belong to asynq;
all dependency resolution, scoping, and lifecycle belong to fx. This module
only carries metadata from declaration to registration and from method call
to enqueue.
*/
package fxasynq
