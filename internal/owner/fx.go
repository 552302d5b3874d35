package owner

import (
	"github.com/aramabarzani/creditbook/internal/owner/service"
	"go.uber.org/fx"
)

var Module = fx.Module("owner.service",
	fx.Provide(service.NewService),
)
