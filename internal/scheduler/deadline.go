// Package scheduler runs periodic jobs that emit notification events.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"prima-facie-go/internal/events"
	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/tasks"
)

// DeadlineScanner publishes one deadline_approaching event per active matter
// whose next deadline falls within the window.
type DeadlineScanner struct {
	matters   repository.MatterRepository
	publisher events.Publisher
	window    time.Duration
	now       func() time.Time

	mu   sync.Mutex
	cron *rcron.Cron
}

// NewDeadlineScanner 创建一个新的 DeadlineScanner 实例。
func NewDeadlineScanner(matters repository.MatterRepository, publisher events.Publisher, windowDays int) *DeadlineScanner {
	if windowDays <= 0 {
		windowDays = 3
	}
	return &DeadlineScanner{
		matters:   matters,
		publisher: publisher,
		window:    time.Duration(windowDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// Start schedules Scan on spec (standard five-field cron syntax).
func (s *DeadlineScanner) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("deadline scanner already started")
	}
	c := rcron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := s.Scan(ctx)
		if err != nil {
			log.Errorf("[Scheduler] 截止日期扫描失败: %v", err)
			return
		}
		log.Infof("[Scheduler] 截止日期扫描完成, 发布事件数: %d", n)
	})
	if err != nil {
		return fmt.Errorf("invalid deadline cron %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	log.Infof("[Scheduler] 截止日期扫描已启动, cron: %s", spec)
	return nil
}

// Stop waits for a running scan to finish.
func (s *DeadlineScanner) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Scan publishes the events for the current window and returns how many were
// published. A failed publish is logged and the scan continues.
func (s *DeadlineScanner) Scan(ctx context.Context) (int, error) {
	// 截止日期按日存储（零点），窗口从当天零点算起
	today := startOfDay(s.now())
	matters, err := s.matters.MattersWithDeadlineBetween(ctx, today, today.Add(s.window))
	if err != nil {
		return 0, fmt.Errorf("list upcoming deadlines: %w", err)
	}
	published := 0
	for _, m := range matters {
		ev := deadlineEvent(m, today)
		if err := s.publisher.Publish(ctx, ev); err != nil {
			log.Errorw("发布截止日期事件失败", "lawFirmId", m.LawFirmID, "matterId", m.ID, "error", err)
			continue
		}
		published++
	}
	return published, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// deadlineEvent counts calendar days from today to the deadline date.
func deadlineEvent(m model.Matter, today time.Time) tasks.NotificationEvent {
	deadline := *m.NextDeadline
	days := int(math.Round(startOfDay(deadline.In(today.Location())).Sub(today).Hours() / 24))
	return tasks.NotificationEvent{
		EventType: tasks.EventDeadlineApproaching,
		LawFirmID: m.LawFirmID,
		MatterID:  m.ID,
		Metadata: map[string]any{
			"deadline":       model.LocalDate(deadline).String(),
			"matter_title":   m.Title,
			"days_remaining": days,
		},
	}
}
