// Команда vqctl — административные операции над очередями в обход HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"virtual_queue/internal/auth"
	"virtual_queue/internal/config"
	"virtual_queue/internal/logger"
	"virtual_queue/internal/models"
	"virtual_queue/internal/storage"
)

type app struct {
	configFile string
	cfg        *config.Config
	db         *gorm.DB
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Logger.WithError(err).Error("команда завершилась с ошибкой")
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "vqctl",
		Short:         "Администрирование виртуальных очередей",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				logger.Logger.Debug("файл .env не найден")
			}
			cfg, err := config.Load(config.New(), a.configFile)
			if err != nil {
				return err
			}
			logger.Init(cfg.LogLevel)
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", os.Getenv("VQ_CONFIG"), "путь к файлу конфигурации")

	root.AddCommand(a.migrateCmd(), a.queueCmd(), a.tokenCmd())
	return root
}

func (a *app) connect() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if a.cfg.StorageDriver != "postgres" {
		return nil, fmt.Errorf("storage driver %q has no persistent database", a.cfg.StorageDriver)
	}
	db, err := storage.ConnectDatabase(a.cfg.DB)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Создать или обновить таблицы",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.connect()
			if err != nil {
				return err
			}
			if err := storage.Migrate(db); err != nil {
				return err
			}
			logger.Logger.Info("миграция выполнена")
			return nil
		},
	}
}

func (a *app) queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Управление очередями",
	}
	cmd.AddCommand(a.queueCreateCmd(), a.queueListCmd(), a.queueDeactivateCmd())
	return cmd
}

func (a *app) queueCreateCmd() *cobra.Command {
	var (
		q        models.Queue
		policy   string
		hours    string
		inactive bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Создать очередь",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.ID = models.NewID()
			q.IsActive = !inactive
			q.PriorityPolicy = splitList(policy)
			if hours != "" {
				start, end, ok := strings.Cut(hours, "-")
				if !ok {
					return fmt.Errorf("hours must look like 09:00-18:00, got %q", hours)
				}
				q.OperatingHours.Start, q.OperatingHours.End = start, end
			}
			if err := q.Validate(); err != nil {
				return err
			}
			db, err := a.connect()
			if err != nil {
				return err
			}
			if err := storage.NewQueueRepo(db).SaveQueue(cmd.Context(), &q); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), q.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.TenantID, "tenant", "", "арендатор")
	f.StringVar(&q.Name, "name", "", "название очереди")
	f.IntVar(&q.Capacity, "capacity", 1, "сколько участников одновременно вызваны или обслуживаются")
	f.IntVar(&q.MaxActive, "max-active", 0, "лимит активных участников, 0 — без лимита")
	f.Float64Var(&q.ReleaseRatePerMinute, "rate", 0, "темп вызова в минуту, 0 — только ручной вызов")
	f.StringVar(&policy, "policy", "normal", "уровни приоритета через запятую, от старшего к младшему")
	f.StringVar(&q.DefaultTier, "default-tier", "", "уровень по умолчанию")
	f.StringVar(&hours, "hours", "", "часы работы, например 09:00-18:00")
	f.StringVar(&q.OperatingHours.Timezone, "tz", "", "часовой пояс часов работы")
	f.IntVar(&q.NoShowTimeoutSeconds, "no-show", 0, "таймаут неявки в секундах")
	f.IntVar(&q.DefaultServiceSeconds, "service", 0, "оценка времени обслуживания в секундах")
	f.BoolVar(&inactive, "inactive", false, "создать закрытой для записи")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) queueListCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Список очередей арендатора",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.connect()
			if err != nil {
				return err
			}
			queues, err := storage.NewQueueRepo(db).ListQueues(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tACTIVE\tCAPACITY\tRATE\tPOLICY")
			for _, q := range queues {
				fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%g\t%s\n",
					q.ID, q.Name, q.IsActive, q.Capacity, q.ReleaseRatePerMinute, strings.Join(q.PriorityPolicy, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "арендатор")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

// Работающий сервер узнаёт об изменении после перезапуска или через
// POST /api/staff/queues/:id/deactivate.
func (a *app) queueDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <queue-id>",
		Short: "Закрыть очередь для новых участников",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.connect()
			if err != nil {
				return err
			}
			repo := storage.NewQueueRepo(db)
			q, err := repo.GetQueue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			q.IsActive = false
			if err := repo.SaveQueue(cmd.Context(), q); err != nil {
				return err
			}
			logger.Logger.WithField("queue_id", q.ID).Info("очередь закрыта для записи")
			return nil
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	var (
		staff, tenant, role string
		ttl                 time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить токен сотрудника",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != auth.RoleStaff && role != auth.RoleAdmin {
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := auth.IssueToken([]byte(a.cfg.JWTSecret), staff, tenant, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&staff, "staff", "", "идентификатор сотрудника")
	f.StringVar(&tenant, "tenant", "", "арендатор")
	f.StringVar(&role, "role", auth.RoleStaff, "роль: staff или admin")
	f.DurationVar(&ttl, "ttl", 12*time.Hour, "срок действия")
	_ = cmd.MarkFlagRequired("staff")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
