// internal/app/app.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"propoflash/internal/common/camunda"
	"propoflash/internal/common/config"
	"propoflash/internal/common/database"
	"propoflash/internal/common/logger"
	"propoflash/internal/common/observability"
	"propoflash/internal/gateway"
	"propoflash/internal/proposal"
	"propoflash/internal/server"
	usagequota "propoflash/internal/workers/infrastructure/usage-quota"
	"propoflash/internal/workers/proposal/chat"
	"propoflash/internal/workers/proposal/style"
	"propoflash/pkg/registry"
)

// App holds every long-lived component built from configuration.
type App struct {
	Config   *config.Config
	Logger   logger.Logger
	Obs      *observability.Observability
	Registry *registry.ActivityRegistry

	Chat  *chat.Handler
	Style *style.Handler
	Quota *usagequota.Handler

	stores  []server.Pinger
	closers []func() error
}

// Build wires stores, the completion gateway and the handlers. Stores are
// only created when configured; nothing here dials the network.
func Build(cfg *config.Config, log logger.Logger, reg *registry.ActivityRegistry) (*App, error) {
	if reg == nil {
		reg = registry.Default()
	}
	a := &App{Config: cfg, Logger: log, Registry: reg}

	var obsOpts []observability.Option
	if cfg.Observability.JaegerEndpoint != "" {
		obsOpts = append(obsOpts, observability.WithJaegerEndpoint(cfg.Observability.JaegerEndpoint))
	}
	obs, err := observability.New(cfg.Observability.ServiceName, obsOpts...)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	a.Obs = obs

	pipeline, err := NewPipeline(cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	prompts, err := gateway.LoadPrompts(cfg.Completion.PromptsPath)
	if err != nil {
		return nil, err
	}
	gw, err := gateway.New(cfg.Completion, log, obs)
	if err != nil {
		return nil, err
	}

	var incidents observability.IncidentSink = observability.NopSink{}
	if cfg.Database.Elasticsearch.Configured() {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		incidents = observability.NewElasticsearchSink(es.Client, cfg.Database.Elasticsearch.IncidentIndex)
		a.stores = append(a.stores, es)
	}

	var (
		db  *sql.DB
		rdb *redis.Client
	)
	if cfg.Database.Postgres.Configured() {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		db = pg.DB
		a.stores = append(a.stores, pg)
		a.closers = append(a.closers, pg.Close)
	}
	if cfg.Database.Redis.Configured() {
		r := database.NewRedis(cfg.Database.Redis)
		rdb = r.Client
		a.stores = append(a.stores, r)
		a.closers = append(a.closers, r.Close)
	}

	chatOpts := []chat.Option{chat.WithIncidentSink(incidents), chat.WithObservability(obs)}
	if cfg.Quota.Enabled && rdb != nil {
		a.Quota = usagequota.NewHandler(usagequota.NewConfig(cfg.Quota), db, rdb, log)
		chatOpts = append(chatOpts, chat.WithQuota(a.Quota))
	}

	a.Chat = chat.NewHandler(chat.NewConfig(cfg), gw, prompts.Chat, pipeline, log, chatOpts...)
	a.Style = style.NewHandler(style.NewConfig(cfg), gw, prompts.Style, pipeline, log,
		style.WithIncidentSink(incidents), style.WithObservability(obs))

	log.Info("application wired", map[string]interface{}{
		"provider":   gw.Provider(),
		"model":      cfg.Completion.Model,
		"quota":      a.Quota != nil,
		"incidents":  cfg.Database.Elasticsearch.Configured(),
		"storeCount": len(a.stores),
	})
	return a, nil
}

// NewPipeline builds the document pipeline from its settings.
func NewPipeline(cfg config.PipelineConfig) (*proposal.Pipeline, error) {
	policy, err := proposal.ParseArrayPolicy(cfg.MergeArrays)
	if err != nil {
		return nil, err
	}
	caps := make(map[string]int, len(cfg.ListCaps)+1)
	for _, c := range cfg.ListCaps {
		caps[c.Path] = c.Max
	}
	if cfg.MaxActions > 0 {
		caps["actions"] = cfg.MaxActions
	}
	maxLayers, ok := caps["decor_layers"]
	if !ok {
		maxLayers = proposal.DefaultListCaps()["decor_layers"]
	}
	return proposal.NewPipeline(
		proposal.Merger{Arrays: policy},
		proposal.NewNormalizer(caps, cfg.DefaultListCap),
		proposal.StyleGuard{MinContrast: cfg.MinContrast, MaxDecorLayers: maxLayers},
	)
}

// Handler is the HTTP surface.
func (a *App) Handler() http.Handler {
	return server.NewHandler(server.Deps{
		Chat:           a.Chat,
		Style:          a.Style,
		Registry:       a.Registry,
		Stores:         a.stores,
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		Logger:         a.Logger,
	})
}

// Registrations lists the job workers this binary can run.
func (a *App) Registrations() []camunda.Registration {
	regs := []camunda.Registration{
		{TaskType: chat.TaskType, Handler: a.Chat},
		{TaskType: style.TaskType, Handler: a.Style},
	}
	if a.Quota != nil {
		regs = append(regs, camunda.Registration{TaskType: usagequota.TaskType, Handler: a.Quota})
	}
	return regs
}

func (a *App) Close(ctx context.Context) {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.Logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.Obs.Shutdown(ctx)
}
