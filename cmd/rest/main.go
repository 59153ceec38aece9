package main

import (
	"context"
	"log"

	"pinboard-be/internal/bootstrap"
	"pinboard-be/internal/config"
	"pinboard-be/internal/server"
	"pinboard-be/internal/tracer"
	"pinboard-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	// Database is optional: without a DSN the boards run purely in memory
	// with no durable content archive.
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	} else {
		log.Println("DB_CONNECTION_STRING not set, running with in-memory content archive")
	}

	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.BoardService.Close()

	srv := server.New(cfg, container)

	log.Fatal(srv.Run())
}
