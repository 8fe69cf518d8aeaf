package main

import (
	"flag"
	"fmt"
	"os"

	"gitlab.com/dirk.krummacker/address-book/internal/config"
	"gitlab.com/dirk.krummacker/address-book/internal/database"
	"gitlab.com/dirk.krummacker/address-book/internal/logger"
)

// Usage example on the command line:
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go -down -steps=1
func main() {
	down := flag.Bool("down", false, "roll back migrations instead of applying them")
	steps := flag.Int("steps", 0, "number of migrations to roll back, 0 means all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("could not load configuration", err)
		os.Exit(1)
	}
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel())

	if *down {
		err = database.RollbackMigrations(cfg.Database, *steps)
	} else {
		err = database.RunMigrations(cfg.Database)
	}
	if err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migration finished", "down", *down, "steps", *steps)
}
