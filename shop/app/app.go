package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/shopbot/core/bootstrap"
	coretelegram "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/router"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/cart"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/flow"
	"github.com/m3rciful/shopbot/shop/navigation"
	"github.com/m3rciful/shopbot/shop/orders"
	shoptelegram "github.com/m3rciful/shopbot/shop/telegram"
)

// App holds the assembled storefront ready to serve Telegram updates.
type App struct {
	cfg *Config
	db  *sqlx.DB

	fsm      state.Manager
	handlers *shoptelegram.Handlers
}

// New bootstraps infrastructure and wires the storefront services.
func New(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	db := res.DB

	catalogStore := catalog.NewStore(db)
	orderStore := orders.NewStore(db)

	var cartStore cart.Store
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("app: redis ping failed: %w", err)
		}
		cartStore = cart.NewRedisStore(client, cfg.Redis.CartTTL())
	} else {
		cartStore = cart.NewMemoryStore()
	}

	if cfg.Shop.SeedDemo {
		if err := seedDemoCatalog(context.Background(), catalogStore); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	fsm := state.NewMemoryManager()
	engine := flow.New(flow.Options{
		Catalog:      catalogStore,
		Orders:       orderStore,
		Carts:        cart.NewService(cartStore, catalogStore),
		Nav:          navigation.NewStack(),
		Forms:        fsm,
		AdminID:      cfg.Core.Telegram.AdminID,
		HistoryLimit: cfg.Shop.HistoryLimit,
	})

	return &App{
		cfg:      cfg,
		db:       db,
		fsm:      fsm,
		handlers: shoptelegram.NewHandlers(engine, cfg.Shop.Currency, cfg.Core.Telegram.AdminID),
	}, nil
}

// TelegramRunOptions builds the bot runtime configuration.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.fsm, reg, router.TextOptions{})...)
	routes = append(routes, a.handlers.PhotoRoute(a.fsm))

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
