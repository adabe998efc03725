package scheduler

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/service"
	"github.com/robfig/cron/v3"
)

// DefaultCronSpec 对应周日 23:59，即一周结束后触发周报生成
const DefaultCronSpec = "59 23 * * 0"

// ReportGenerator 抽象周报生成能力，便于测试注入
type ReportGenerator interface {
	Generate(today time.Time) (*db.WeeklyReport, error)
}

// Scheduler 持有后台定时任务，依赖通过构造函数显式注入。
// 只注册一个幂等的周报任务，重复触发由生成逻辑自身吸收。
type Scheduler struct {
	cron    *cron.Cron
	reports ReportGenerator
}

// New 构造 Scheduler 并注册周报任务。spec 为空时使用默认触发时间。
func New(reports ReportGenerator, spec string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultCronSpec
	}

	s := &Scheduler{cron: cron.New(), reports: reports}
	if _, err := s.cron.AddFunc(spec, s.runWeeklyReport); err != nil {
		return nil, fmt.Errorf("register weekly report job: %w", err)
	}
	return s, nil
}

// Start 启动后台调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务完成
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runWeeklyReport() {
	runID := uuid.NewString()

	report, err := s.reports.Generate(time.Now())
	switch {
	case errors.Is(err, service.ErrNoActiveHabits):
		log.Printf("weekly report run %s: no active habits, nothing to report", runID)
	case err != nil:
		log.Printf("weekly report run %s failed: %v", runID, err)
	default:
		log.Printf("weekly report run %s: report for week %s ready (habits=%d completions=%d)",
			runID, report.WeekStart.Format("2006-01-02"), report.TotalHabits, report.TotalCompletions)
	}
}
