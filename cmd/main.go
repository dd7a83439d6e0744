package main

import (
	"log"

	infra "github.com/coursebay/player-session/internal/infrastructure"
	"github.com/coursebay/player-session/internal/infrastructure/driver"
	"github.com/coursebay/player-session/internal/infrastructure/logging"
	"github.com/coursebay/player-session/internal/infrastructure/uuid"
	ihttp "github.com/coursebay/player-session/internal/interfaces/http"
	"github.com/coursebay/player-session/internal/session"
	"github.com/coursebay/player-session/internal/upstream"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	defer logger.Sync()

	rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)
	if err := rdb.Ping(); err != nil {
		log.Fatalf("Failed to reach kv store: %s\n", err)
	}
	logger.Debug("Create kv store connection instance",
		zap.String("kv.host", option.KVStore.Host),
		zap.Int("kv.port", option.KVStore.Port),
	)

	api := upstream.NewClient(option.Upstream.BaseURL, option.Upstream.Timeout)
	IDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength)

	manager := session.NewManager(api, rdb, IDGenerator, session.ManagerConfig{
		CountdownSeconds:  option.Playback.CountdownSeconds,
		WatermarkInterval: option.Playback.WatermarkInterval,
		StructureCacheTTL: option.Playback.StructureCacheTTL,
		IdleTimeout:       option.Playback.IdleTimeout,
	}, logger)
	defer manager.Shutdown()

	ihttp.Serve(rdb, option, manager, logger)
}
