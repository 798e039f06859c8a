package main

import (
	"log"

	"focusflow/backend/internal/config"
	"focusflow/backend/internal/db"
	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/router"
	"focusflow/backend/internal/service"
)

func main() {
	cfg := config.Load()

	defaults, err := config.LoadTimerDefaults(cfg.TimerDefaultsPath)
	if err != nil {
		log.Printf("timer defaults: %v (using built-in defaults)", err)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	prefsRepo := repository.NewPreferencesRepository(database)

	achievementService := service.NewAchievementService(sessionRepo)
	authService := service.NewAuthService(userRepo, prefsRepo, defaults, cfg.JWTSecret, cfg.TokenTTL)
	timerService := service.NewTimerService(sessionRepo, prefsRepo, achievementService, defaults)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(timerService)

	engine := router.New(authService, authHandler, timerHandler, cfg.CORSOrigins)
	log.Printf("backend listening on :%s", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("run server: %v", err)
	}
}
