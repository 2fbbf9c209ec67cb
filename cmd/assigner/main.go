package main

import (
	"log"

	"reviewassigner/internal/config"
	"reviewassigner/internal/initializers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if err := initializers.RunPRAssigner(cfg); err != nil {
		log.Fatalf("PR assigner stopped: %v", err)
	}
}
