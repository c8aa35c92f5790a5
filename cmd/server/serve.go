package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"prima-facie-go/internal/config"
	"prima-facie-go/internal/events"
	"prima-facie-go/internal/handler"
	"prima-facie-go/internal/middleware"
	"prima-facie-go/internal/pipeline"
	"prima-facie-go/internal/scheduler"
	"prima-facie-go/internal/service"
	"prima-facie-go/pkg/kafka"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/token"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the notification consumer and the deadline scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(config.Conf)
	},
}

func serve(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	// 通知事件：启用 Kafka 时经由主题投递，否则在进程内异步处理
	processor := pipeline.NewProcessor(a.notifications)
	var publisher events.Publisher
	var inline *events.InlinePublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warnf("关闭 Kafka 生产者失败: %v", err)
			}
		}()
		publisher = producer
		go func() {
			if err := kafka.StartConsumer(ctx, cfg.Kafka, processor, a.eventTimeout()); err != nil {
				log.Errorf("Kafka 消费者退出: %v", err)
			}
		}()
	} else {
		inline = events.NewInlinePublisher(processor, a.eventTimeout())
		publisher = inline
	}

	if cfg.Scheduler.Enabled {
		scanner := scheduler.NewDeadlineScanner(a.matters, publisher, cfg.Scheduler.DeadlineWindowDays)
		if err := scanner.Start(ctx, cfg.Scheduler.DeadlineCron); err != nil {
			return err
		}
		defer scanner.Stop()
	}

	// 初始化 Service (依赖注入)
	convs := a.conversations
	chatService := service.NewChatService(service.ChatDeps{
		Conversations: convs,
		Firms:         a.firms,
		Profiles:      a.profiles,
		Tools:         a.toolDeps,
		LLM:           a.llm,
		Limiter:       service.NewRateLimiter(convs, cfg.AI.RateLimit),
		Metrics:       a.metrics,
		Config:        cfg.AI,
	})
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, 0)

	router := handler.NewRouter(cfg.Server.Mode, handler.Routes{
		Auth:           middleware.AuthMiddleware(jwtManager, a.profiles),
		Chat:           handler.NewChatHandler(chatService, cfg.AI.PortalTimeout()),
		Conversations:  handler.NewConversationHandler(service.NewConversationService(convs)),
		ToolExecutions: handler.NewToolExecutionHandler(service.NewToolExecutionService(convs, a.toolDeps, publisher, a.metrics)),
		Metrics:        promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP 服务监听失败: %w", err)
	case <-ctx.Done():
	}
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP 服务器关闭失败: %w", err)
	}
	if inline != nil {
		inline.Wait()
	}
	log.Info("服务已优雅关闭")
	return nil
}
