package providers

import (
	"github.com/smallbiznis/academy/internal/providers/email"
	"github.com/smallbiznis/academy/internal/providers/kv"
	"github.com/smallbiznis/academy/internal/providers/pdf"
	"github.com/smallbiznis/academy/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	kv.Module,
	pdf.Module,
	storage.Module,
)
