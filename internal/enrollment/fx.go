package enrollment

import (
	"github.com/smallbiznis/academy/internal/enrollment/repository"
	"github.com/smallbiznis/academy/internal/enrollment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("enrollment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
