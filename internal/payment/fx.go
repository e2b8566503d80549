package payment

import (
	"github.com/smallbiznis/academy/internal/payment/gateway"
	"github.com/smallbiznis/academy/internal/payment/repository"
	"github.com/smallbiznis/academy/internal/payment/service"
	"github.com/smallbiznis/academy/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(gateway.NewMerchant),
	fx.Provide(service.New),
	fx.Provide(webhook.New),
)
