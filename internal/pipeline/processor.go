// Package pipeline 定义了通知事件处理的核心流程。
package pipeline

import (
	"context"

	"prima-facie-go/internal/service"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/tasks"
)

// Processor 把通知事件交给通知引擎。It implements events.Processor.
type Processor struct {
	engine service.NotificationService
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(engine service.NotificationService) *Processor {
	return &Processor{engine: engine}
}

// Process 是事件处理的主函数。Failures are reported through the outcome and
// never returned, so the consumer commits every event exactly once.
func (p *Processor) Process(ctx context.Context, ev tasks.NotificationEvent) error {
	log.Infof("[Processor] 开始处理通知事件, EventType: %s, LawFirmID: %s, MatterID: %s", ev.EventType, ev.LawFirmID, ev.MatterID)
	if err := ctx.Err(); err != nil {
		log.Warnf("[Processor] 上下文已结束, 跳过事件 %s: %v", ev.EventType, err)
		return nil
	}
	out := p.engine.Notify(ctx, ev)
	if out.Kind == service.OutcomeFailed {
		log.Warnf("[Processor] 通知事件处理失败, EventType: %s, Reason: %s", ev.EventType, out.Reason)
		return nil
	}
	log.Infof("[Processor] 通知事件处理完成, EventType: %s, Outcome: %s", ev.EventType, out.Kind)
	return nil
}
