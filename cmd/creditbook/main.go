// @title           CreditBook API
// @version         1.0
// @description     Multi-tenant customer debt bookkeeping for retail stores

// @host      localhost:8080
// @BasePath  /api
// @Schemes 	http https

package main

import (
	"github.com/aramabarzani/creditbook/internal/audit"
	"github.com/aramabarzani/creditbook/internal/clock"
	"github.com/aramabarzani/creditbook/internal/config"
	"github.com/aramabarzani/creditbook/internal/customer"
	"github.com/aramabarzani/creditbook/internal/events"
	"github.com/aramabarzani/creditbook/internal/ledger"
	"github.com/aramabarzani/creditbook/internal/license"
	"github.com/aramabarzani/creditbook/internal/member"
	"github.com/aramabarzani/creditbook/internal/migration"
	"github.com/aramabarzani/creditbook/internal/observability"
	"github.com/aramabarzani/creditbook/internal/owner"
	"github.com/aramabarzani/creditbook/internal/quota"
	"github.com/aramabarzani/creditbook/internal/scheduler"
	"github.com/aramabarzani/creditbook/internal/seed"
	"github.com/aramabarzani/creditbook/internal/server"
	"github.com/aramabarzani/creditbook/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if !cfg.IsProduction() && cfg.Bootstrap.EnsureDefaultOwner {
				return seed.EnsureDefaultOwner(conn)
			}
			return nil
		}),

		events.Module,
		audit.Module,
		license.Module,
		quota.Module,
		owner.Module,
		customer.Module,
		ledger.Module,
		member.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
