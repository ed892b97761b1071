package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"virtual_queue/internal/logger"
)

// Engine описывает периодические операции движка очередей.
type Engine interface {
	TickAll(ctx context.Context) (int, error)
	Sweep(ctx context.Context) (int, error)
	ArchiveDrained(ctx context.Context) ([]string, error)
}

// Intervals задаёт периоды фоновых задач.
type Intervals struct {
	Release time.Duration
	Sweep   time.Duration
	Archive time.Duration
}

// Planner запускает по cron выпуск участников, поиск неявок и архивацию очередей.
// Пропущенный запуск безопасен: следующий догонит.
type Planner struct {
	cron   *cron.Cron
	engine Engine
	iv     Intervals
	log    logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
}

// InitScheduler регистрирует задачи, но не запускает их.
func InitScheduler(engine Engine, iv Intervals) (*Planner, error) {
	log := logger.Logger.WithField("component", "planner")
	cronLog := cron.PrintfLogger(log)
	ctx, cancel := context.WithCancel(context.Background())
	p := &Planner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		engine: engine,
		iv:     iv,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	jobs := []struct {
		name  string
		every time.Duration
		run   func()
	}{
		{"release", iv.Release, p.ReleaseTick},
		{"no-show", iv.Sweep, p.SweepNoShows},
		{"archive", iv.Archive, p.ArchiveDrained},
	}
	for _, j := range jobs {
		if j.every <= 0 {
			cancel()
			return nil, fmt.Errorf("интервал задачи %s должен быть положительным", j.name)
		}
		if _, err := p.cron.AddFunc("@every "+j.every.String(), j.run); err != nil {
			cancel()
			return nil, fmt.Errorf("регистрация cron-задачи %s: %w", j.name, err)
		}
	}
	return p, nil
}

// Start запускает планировщик.
func (p *Planner) Start() {
	p.cron.Start()
	p.log.WithFields(logrus.Fields{
		"release": p.iv.Release,
		"sweep":   p.iv.Sweep,
		"archive": p.iv.Archive,
	}).Info("cron-планировщик запущен")
}

// Stop отменяет текущие задачи и ждёт их завершения.
func (p *Planner) Stop(ctx context.Context) error {
	p.cancel()
	done := p.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReleaseTick выпускает участников во всех загруженных очередях.
func (p *Planner) ReleaseTick() {
	ctx, cancel := context.WithTimeout(p.ctx, p.iv.Release)
	defer cancel()
	n, err := p.engine.TickAll(ctx)
	if err != nil {
		p.log.WithError(err).Warn("выпуск прерван")
		return
	}
	if n > 0 {
		p.log.WithField("released", n).Debug("участники вызваны")
	}
}

// SweepNoShows переводит просроченных вызванных участников в NoShow.
func (p *Planner) SweepNoShows() {
	ctx, cancel := context.WithTimeout(p.ctx, p.iv.Sweep)
	defer cancel()
	n, err := p.engine.Sweep(ctx)
	if err != nil {
		p.log.WithError(err).Warn("поиск неявок прерван")
		return
	}
	if n > 0 {
		p.log.WithField("no_show", n).Info("неявки обработаны")
	}
}

// ArchiveDrained архивирует деактивированные очереди без активных участников.
func (p *Planner) ArchiveDrained() {
	ctx, cancel := context.WithTimeout(p.ctx, p.iv.Archive)
	defer cancel()
	ids, err := p.engine.ArchiveDrained(ctx)
	if err != nil {
		p.log.WithError(err).Error("ошибка архивации очередей")
		return
	}
	for _, id := range ids {
		p.log.WithField("queue_id", id).Info("очередь архивирована")
	}
}
