package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tooldashai/tooldash/app/controllers"
	"github.com/tooldashai/tooldash/app/repository"
	"github.com/tooldashai/tooldash/internal/pkg/billing"
	"github.com/tooldashai/tooldash/internal/pkg/cache"
	"github.com/tooldashai/tooldash/internal/pkg/database"
	"github.com/tooldashai/tooldash/internal/pkg/env"
	"github.com/tooldashai/tooldash/internal/pkg/jobqueue"
	"github.com/tooldashai/tooldash/internal/pkg/metrics/counter"
	"github.com/tooldashai/tooldash/internal/pkg/router"
	"github.com/tooldashai/tooldash/internal/pkg/tracing"
)

func main() {
	app := NewApplication()

	go func() {
		err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
		if err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("HTTP shutdown failed: %v", err)
	}
	if m := jobqueue.GetManager(); m != nil {
		m.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx); err != nil {
		log.Printf("Tracer shutdown failed: %v", err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	if _, err := tracing.InitTracing(tracing.ConfigFromEnv()); err != nil {
		log.Printf("Tracing disabled: %v", err)
	}

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/tooldash to project root
		"../../../", // Fallback
	}

	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	// billing
	billingCfg := billing.LoadConfig()
	if err := checkBillingConfig(billingCfg, env.IsProd()); err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	svc := billing.NewService(repos.Billing, billingCfg, billing.NewLemonSqueezyClient(billingCfg))
	processor := billing.NewProcessor(repos.Billing)

	// job queue
	workers, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKERS", "3"))
	if err != nil {
		workers = 3
	}
	queue := jobqueue.NewQueue(cache.GetClient(), workers, processor)
	manager := jobqueue.NewManager(queue, processor)
	manager.Start()
	jobqueue.SetManager(manager)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "tooldash",
		BodyLimit: 1 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New(), tracing.Middleware())

	// fiber metrics
	app.Use("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}))
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	billingController := controllers.NewBillingController(svc, queue)
	billingController.SetCounters(counter.New(cache.GetClient()))

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Billing:        billingController,
		Queue:          controllers.NewQueueController(repository.NewQueueRepository(queue)),
		Users:          repos.User,
		LimiterStorage: cache.NewFiberStorage(cache.ConfigFromEnv(), cache.LimiterDatabase),
		UserHeader:     env.GetEnv("AUTH_USER_HEADER", ""),
	})

	return app
}

// checkBillingConfig fails on incomplete billing configuration in strict
// mode and only logs it otherwise.
func checkBillingConfig(cfg billing.Config, strict bool) error {
	err := cfg.Validate()
	if err == nil {
		return nil
	}
	if strict {
		return fmt.Errorf("refusing to start: %w", err)
	}
	log.Printf("ERROR: %v (checkout and webhooks will fail until this is fixed)", err)
	return nil
}
