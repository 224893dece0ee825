package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	logsvc "github.com/deepweb1970/gestionchantier-sub001/services/logger"
	"github.com/deepweb1970/gestionchantier-sub001/storage/database"
	sqlxrepos "github.com/deepweb1970/gestionchantier-sub001/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli := &commandLine{
		conf:   conf,
		logger: logger,
		out:    os.Stdout,
	}
	// the DB is only opened by the commands that need it
	cli.connect = func(ctx context.Context) error {
		db, err := database.Open(conf)
		if err != nil {
			return err
		}
		if err = database.Ping(ctx, db); err != nil {
			_ = db.Close()
			return err
		}
		cli.db = db.DB
		cli.usrRepo = sqlxrepos.NewUserRepository(db)
		return nil
	}

	err := cli.run(ctx, os.Args[1:])
	if cli.db != nil {
		_ = cli.db.Close()
	}
	stop()
	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		os.Exit(1)
	}
}
