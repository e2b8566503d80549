package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/catalog"
	"github.com/smallbiznis/academy/internal/certificate"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/dispatch"
	"github.com/smallbiznis/academy/internal/enrollment"
	"github.com/smallbiznis/academy/internal/notification"
	"github.com/smallbiznis/academy/internal/observability"
	"github.com/smallbiznis/academy/internal/providers"
	"github.com/smallbiznis/academy/internal/ratelimit"
	"github.com/smallbiznis/academy/internal/scheduler"
	"github.com/smallbiznis/academy/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		providers.Module,
		dispatch.Module,
		ratelimit.Module,

		// Domain services required by the artifact backfill
		catalog.Module,
		notification.Module,
		enrollment.Module,
		certificate.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(int64(cfg.NodeID))
}
