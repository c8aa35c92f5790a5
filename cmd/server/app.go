package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/config"
	"prima-facie-go/internal/repository"
	"prima-facie-go/internal/service"
	"prima-facie-go/pkg/database"
	"prima-facie-go/pkg/es"
	"prima-facie-go/pkg/llm"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/metrics"
	"prima-facie-go/pkg/storage"
)

// app holds the shared infrastructure of every command.
type app struct {
	cfg config.Config
	db  *gorm.DB
	rdb *redis.Client

	conversations repository.ConversationRepository
	threads       repository.ClientThreadRepository
	firms         repository.FirmRepository
	profiles      repository.ProfileRepository
	matters       repository.MatterRepository

	llm      llm.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	searcher *es.Searcher
	toolDeps tools.Deps

	notifications service.NotificationService
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	// 初始化数据库和 Redis
	db, err := database.OpenGorm(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db}

	if cfg.Database.Redis.Addr != "" {
		a.rdb, err = database.OpenRedis(ctx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warnf("未配置 Redis，事务所设置将不做缓存")
	}

	// 初始化 Repository
	a.conversations = repository.NewConversationRepository(db)
	a.threads = repository.NewClientThreadRepository(db)
	a.firms = repository.NewFirmRepository(db, a.rdb, time.Duration(cfg.Database.Redis.SettingsTTLSeconds)*time.Second)
	a.profiles = repository.NewProfileRepository(db)
	a.matters = repository.NewMatterRepository(db)

	a.llm, err = llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	a.toolDeps = tools.Deps{Matters: a.matters, Validate: tools.NewValidator()}
	if cfg.Elasticsearch.Enabled {
		a.searcher, err = es.NewSearcher(cfg.Elasticsearch)
		if err != nil {
			return nil, err
		}
		if err := a.searcher.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		a.toolDeps.Search = a.searcher
	}
	if cfg.MinIO.Enabled {
		presigner, err := storage.NewPresigner(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := presigner.CheckBucket(ctx); err != nil {
			return nil, err
		}
		a.toolDeps.Links = presigner
	}

	a.notifications = service.NewNotificationService(service.NotificationDeps{
		Conversations: a.conversations,
		Threads:       a.threads,
		Firms:         a.firms,
		Profiles:      a.profiles,
		Matters:       a.matters,
		LLM:           a.llm,
		Metrics:       a.metrics,
		Config:        cfg.AI,
	})
	return a, nil
}

func (a *app) eventTimeout() time.Duration {
	return time.Duration(a.cfg.AI.Notification.TimeoutSeconds) * time.Second
}

func (a *app) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			log.Warnf("关闭 Redis 连接失败: %v", err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warnf("关闭数据库连接失败: %v", err)
		}
	}
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
