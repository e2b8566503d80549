package activation

import (
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("activation",
	fx.Provide(
		New,
		func(h *Hooks) enrollmentdomain.Hooks { return h },
	),
)
