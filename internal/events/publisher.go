// Package events carries domain events from producers to the notification
// pipeline, over kafka or in process.
package events

import (
	"context"
	"sync"
	"time"

	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/tasks"
)

// Publisher hands a NotificationEvent to the pipeline. Publishing never waits
// for the notification to be generated.
type Publisher interface {
	Publish(ctx context.Context, ev tasks.NotificationEvent) error
}

// Processor consumes one event.
type Processor interface {
	Process(ctx context.Context, ev tasks.NotificationEvent) error
}

// InlinePublisher processes events on background goroutines. It is used when
// kafka is disabled.
type InlinePublisher struct {
	processor Processor
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewInlinePublisher bounds each event by timeout.
func NewInlinePublisher(processor Processor, timeout time.Duration) *InlinePublisher {
	return &InlinePublisher{processor: processor, timeout: timeout}
}

// Publish detaches from ctx so the event outlives the triggering request.
func (p *InlinePublisher) Publish(_ context.Context, ev tasks.NotificationEvent) error {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.processor.Process(ctx, ev); err != nil {
			log.Errorw("处理通知事件失败", "eventType", ev.EventType, "lawFirmId", ev.LawFirmID, "matterId", ev.MatterID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every published event has been processed.
func (p *InlinePublisher) Wait() {
	p.wg.Wait()
}
