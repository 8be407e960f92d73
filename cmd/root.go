package cmd

import (
	"context"
	"os"
	"time"

	coreconfig "github.com/AzielCF/aegisx/core/config"
	coreDB "github.com/AzielCF/aegisx/core/database"
	domainAudit "github.com/AzielCF/aegisx/domains/audit"
	domainDecision "github.com/AzielCF/aegisx/domains/decision"
	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	domainHealth "github.com/AzielCF/aegisx/domains/health"
	domainRule "github.com/AzielCF/aegisx/domains/rule"
	infraValkey "github.com/AzielCF/aegisx/infrastructure/valkey"
	"github.com/AzielCF/aegisx/pkg/dispatchworker"
	"github.com/AzielCF/aegisx/pkg/notify"
	"github.com/AzielCF/aegisx/pkg/utils"
	"github.com/AzielCF/aegisx/repository"
	"github.com/AzielCF/aegisx/usecase"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	appCtx    context.Context
	appCancel context.CancelFunc

	db       *gorm.DB
	vkClient *infraValkey.Client

	// Usecase
	ruleUsecase      domainRule.IRuleUsecase
	emergencyUsecase domainEmergency.IEmergencyUsecase
	decisionUsecase  domainDecision.IDecisionUsecase
	auditUsecase     domainAudit.IAuditUsecase
	healthUsecase    domainHealth.IHealthUsecase
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aegisx",
	Short: "Campus physical access-control policy engine",
	Long: `AegisX evaluates badge presentations from NFC readers against
prioritized per-school access rules and emergency modes, and keeps an
append-only audit log of every decision.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if _, err := coreconfig.LoadConfig(); err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig applies viper overrides on top of the env-loaded config
func initEnvConfig() {
	cfg := coreconfig.Global
	if envPort := viper.GetString("app_port"); envPort != "" {
		cfg.App.Port = envPort
	}
	if viper.IsSet("app_debug") {
		cfg.App.Debug = viper.GetBool("app_debug")
	}
}

func initFlags() {
	cfg := coreconfig.Global

	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.Port,
		"port", "p",
		cfg.App.Port,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&cfg.App.Debug,
		"debug", "d",
		cfg.App.Debug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&cfg.App.BasicAuth,
		"basic-auth", "b",
		cfg.App.BasicAuth,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Database.Driver,
		"db-driver", "",
		cfg.Database.Driver,
		`database driver --db-driver <string> | example: --db-driver="sqlite" or --db-driver="postgres"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Database.Name,
		"db-name", "",
		cfg.Database.Name,
		`database file path (sqlite) or database name (postgres) --db-name <string>`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&cfg.WorkerPool.Size,
		"dispatch-workers", "",
		cfg.WorkerPool.Size,
		`number of concurrent side-effect dispatch workers --dispatch-workers <number>`,
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&cfg.Notify.AdminWebhooks,
		"admin-webhook", "w",
		cfg.Notify.AdminWebhooks,
		`forward security events to webhook --admin-webhook <string> | example: --admin-webhook="https://yourcallback.com/callback"`,
	)
}

func initApp() {
	cfg := coreconfig.Global

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := os.MkdirAll(cfg.Paths.Storages, 0o755); err != nil {
		logrus.Errorln(err)
	}

	appCtx, appCancel = context.WithCancel(context.Background())

	var err error
	db, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	// Repositories
	ruleRepo := repository.NewRuleGormRepository(db)
	emergencyRepo := repository.NewEmergencyGormRepository(db)
	auditRepo := repository.NewAuditGormRepository(db)
	for _, initFn := range []func(context.Context) error{
		ruleRepo.InitSchema, emergencyRepo.InitSchema, auditRepo.InitSchema,
	} {
		if err := initFn(appCtx); err != nil {
			logrus.Fatalf("failed to init schema: %v", err)
		}
	}

	// Pending-PIN store: valkey when configured so multi-server setups share
	// challenges, in-memory otherwise.
	var pendingStore domainDecision.PendingStore
	if cfg.Database.ValkeyEnabled {
		vkClient, err = infraValkey.NewClient(infraValkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Fatalf("failed to connect to valkey: %v", err)
		}
		pendingStore = repository.NewPendingValkeyStore(vkClient)
		logrus.Info("[APP] Pending-PIN store: valkey")
	} else {
		memStore := repository.NewPendingMemoryStore()
		memStore.StartBackgroundCleanup(appCtx, time.Minute)
		pendingStore = memStore
		logrus.Info("[APP] Pending-PIN store: in-memory")
	}

	notifier := notify.NewAdminNotifier(
		cfg.Notify.AdminWebhooks,
		cfg.Notify.WebhookSecret,
		cfg.Notify.InsecureSkipVerify,
		time.Duration(cfg.Notify.TimeoutMs)*time.Millisecond,
	)

	pool := dispatchworker.GetGlobalPool()

	// Usecases
	ruleUsecase = usecase.NewRuleService(ruleRepo, time.Duration(cfg.Engine.RuleCacheTTLSeconds)*time.Second)
	emergencyUsecase = usecase.NewEmergencyService(emergencyRepo, notifier, time.Now,
		time.Duration(cfg.Engine.EmergencySweepMs)*time.Millisecond)
	auditUsecase = usecase.NewAuditService(auditRepo, pool)
	decisionUsecase = usecase.NewDecisionService(
		ruleUsecase, emergencyUsecase, auditUsecase, pendingStore, notifier,
		time.Duration(cfg.Engine.PendingPinTTLSeconds)*time.Second,
		time.Duration(cfg.Engine.StorageTimeoutMs)*time.Millisecond,
	)
	healthUsecase = usecase.NewHealthService(db, vkClient, pool)

	// A restart must not silently drop an active lockdown.
	if err := emergencyUsecase.Restore(appCtx); err != nil {
		logrus.WithError(err).Error("[APP] Failed restoring emergency modes")
	}
	emergencyUsecase.StartSweeper(appCtx)
	healthUsecase.StartPeriodicChecks(appCtx)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of background workers and connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if appCancel != nil {
		appCancel()
	}

	dispatchworker.StopGlobalPool()

	if vkClient != nil {
		vkClient.Close()
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
