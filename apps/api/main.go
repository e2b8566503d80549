package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/activation"
	"github.com/smallbiznis/academy/internal/auth"
	"github.com/smallbiznis/academy/internal/authorization"
	"github.com/smallbiznis/academy/internal/catalog"
	"github.com/smallbiznis/academy/internal/certificate"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/delivery"
	"github.com/smallbiznis/academy/internal/dispatch"
	"github.com/smallbiznis/academy/internal/enrollment"
	"github.com/smallbiznis/academy/internal/notification"
	"github.com/smallbiznis/academy/internal/observability"
	"github.com/smallbiznis/academy/internal/payment"
	"github.com/smallbiznis/academy/internal/providers"
	"github.com/smallbiznis/academy/internal/ratelimit"
	"github.com/smallbiznis/academy/internal/server"
	"github.com/smallbiznis/academy/pkg/db"
	"go.uber.org/fx"
)

// API-only process: serves HTTP and the gateway webhook, runs no background jobs.
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

		catalog.Module,
		notification.Module,
		delivery.Module,
		activation.Module,
		enrollment.Module,
		payment.Module,
		certificate.Module,

		auth.Module,
		authorization.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(int64(cfg.NodeID))
}
