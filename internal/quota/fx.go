package quota

import (
	"github.com/aramabarzani/creditbook/internal/quota/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quota.service",
	fx.Provide(service.NewService),
)
