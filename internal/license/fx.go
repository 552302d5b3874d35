package license

import (
	"github.com/aramabarzani/creditbook/internal/cache"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	"github.com/aramabarzani/creditbook/internal/license/service"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("license.service",
	fx.Provide(func() cache.Cache[snowflake.ID, licensedomain.License] {
		return cache.NewTTLCache[snowflake.ID, licensedomain.License]()
	}),
	fx.Provide(service.NewService),
)
