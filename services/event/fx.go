package event

import (
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("event.pipeline",
	fx.Provide(
		NewRepository,
		NewPipeline,
		NewHandler,
	),
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, handler *Handler) {
	mux.HandleFunc(TypeProcessEvent, handler.HandleProcessEvent)
}
