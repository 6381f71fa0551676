package main

import (
	"context"
	"log"
	"net/http"

	"koperasi-server/src/api"
	"koperasi-server/src/coa"
	"koperasi-server/src/config"
	"koperasi-server/src/db"
)

func main() {
	cfg := config.Load()

	// Connect to database
	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("DB connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}

	db.InitCache()

	// Router
	router := api.NewRouter(pool, coa.DefaultTaxonomy(), cfg)

	log.Println("API server running on port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
