package main

import (
	"context"
	"flag"
	"time"

	"MiCiudadSV/internal/config"
	"MiCiudadSV/internal/migrate"
	"MiCiudadSV/internal/pkg"
	"MiCiudadSV/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	flag.Parse()

	cfg := config.Load()
	pkg.SetupLogger(cfg.App.IsProd(), cfg.App.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := mysql.InitDB(ctx, cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	defer mysql.Close(db)

	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Fatal("failed to get sql.DB")
	}
	runner, err := migrate.New(sqlDB)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure migration runner")
	}

	switch *command {
	case "up":
		err = runner.Up(ctx)
	case "status":
		err = runner.Status(ctx)
	case "down":
		err = runner.Down(ctx, *target)
	default:
		logrus.WithField("command", *command).Fatal("unsupported command")
	}
	if err != nil {
		logrus.WithError(err).WithField("command", *command).Fatal("migration command failed")
	}
	logrus.WithField("command", *command).Info("migration command completed")
}
