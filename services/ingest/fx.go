package ingest

import (
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("ingest",
	fx.Provide(
		func(client *asynq.Client) Enqueuer { return client },
		NewService,
	),
)
