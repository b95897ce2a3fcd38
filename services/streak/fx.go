package streak

import "go.uber.org/fx"

var Module = fx.Module("streak",
	fx.Provide(
		NewRedisMarker,
		NewTracker,
	),
)
