// main.go — точка входа Inspection Module.
// Порядок: флаги, .env, конфигурация, источник, хранилище, сервисы,
// мониторинг зависимостей, начальная загрузка, HTTP-сервер.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/bigkaa/goartstore/inspection-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/inspection-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/inspection-module/internal/api/openapi"
	"github.com/bigkaa/goartstore/inspection-module/internal/config"
	"github.com/bigkaa/goartstore/inspection-module/internal/gateway"
	"github.com/bigkaa/goartstore/inspection-module/internal/normalizer"
	"github.com/bigkaa/goartstore/inspection-module/internal/server"
	"github.com/bigkaa/goartstore/inspection-module/internal/service"
	"github.com/bigkaa/goartstore/inspection-module/internal/store"
)

func main() {
	// 1. Флаги командной строки
	flagSet := pflag.NewFlagSet(config.ServiceName, pflag.ContinueOnError)
	envFile := flagSet.String("env-file", "", "путь к .env файлу (по умолчанию .env, если есть)")
	showVersion := flagSet.Bool("version", false, "показать версию и выйти")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Ошибка разбора флагов: %v", err)
	}
	if *showVersion {
		fmt.Println(config.ServiceName, config.Version)
		return
	}

	// 2. Переменные окружения из .env
	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatalf("Ошибка загрузки .env: %v", err)
	}

	// 3. Конфигурация и логгер
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	logger := config.SetupLogger(cfg)
	logger.Info("Inspection Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Клиент удалённого источника
	client, err := gateway.New(cfg.RemoteReadURL, cfg.RemoteWriteURL, cfg.RemoteCACert, cfg.RemoteTimeout, logger)
	if err != nil {
		log.Fatalf("Ошибка создания клиента источника: %v", err)
	}
	if !client.ReadConfigured() {
		logger.Warn("IM_REMOTE_READ_URL не задан, используется резервный набор")
	}
	if !client.WriteConfigured() {
		logger.Warn("IM_REMOTE_WRITE_URL не задан, изменения сохраняются только в памяти")
	}

	// 5. Резервный набор и хранилище
	seed, err := store.LoadSeed(cfg.SeedFile)
	if err != nil {
		log.Fatalf("Ошибка загрузки резервного набора: %v", err)
	}
	ids := normalizer.NewIDGenerator(nil)
	st := store.New(client, normalizer.New(ids), seed, logger)

	// 6. Сервисы
	notifier := service.NewNotifier(cfg.NotifyMax, cfg.NotifyTTL)
	syncSvc := service.NewSyncService(st, client, ids, notifier, cfg.PersistTimeout, logger)
	views := service.NewViewService(st, logger)

	healthHandler := handlers.NewHealthHandler(st)

	// 7. Мониторинг remote webhook (topologymetrics)
	if cfg.DephealthEnabled && client.ReadConfigured() {
		dephealthSvc, dhErr := service.NewDephealthService(
			config.ServiceName,
			cfg.DephealthGroup,
			cfg.RemoteReadURL,
			cfg.DephealthCheckInterval,
			logger,
		)
		if dhErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dhErr.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
			healthHandler.AddCheck("remote", dephealthSvc)
		}
	}

	// 8. Начальная загрузка до приёма запросов: записи, зарегистрированные
	// раньше её завершения, были бы затёрты
	if err := st.Load(ctx); err != nil {
		logger.Warn("Начальная загрузка завершилась с ошибкой", slog.String("error", err.Error()))
	}

	// 9. Обработчики и middleware
	apiHandler := handlers.NewAPIHandler(healthHandler, st, syncSvc, views, notifier, logger)

	middlewares := []func(http.Handler) http.Handler{
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	}
	if cfg.OpenAPIValidation {
		doc, docErr := openapi.Load()
		if docErr != nil {
			log.Fatalf("Ошибка загрузки OpenAPI документа: %v", docErr)
		}
		validatorMW, vErr := openapi.Validator(doc, logger)
		if vErr != nil {
			log.Fatalf("Ошибка создания OpenAPI валидатора: %v", vErr)
		}
		middlewares = append(middlewares, validatorMW)
	}

	// 10. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, apiHandler, middlewares...)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	// Дождаться фоновых отправок записей
	syncSvc.Wait()
	logger.Info("Inspection Module остановлен")
}
