package audit

import (
	"github.com/aramabarzani/creditbook/internal/audit/repository"
	"github.com/aramabarzani/creditbook/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
