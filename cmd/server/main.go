package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-hall-booking/internal/config"
	"github.com/iliyamo/sports-hall-booking/internal/database"
	"github.com/iliyamo/sports-hall-booking/internal/events"
	"github.com/iliyamo/sports-hall-booking/internal/handler"
	"github.com/iliyamo/sports-hall-booking/internal/lock"
	"github.com/iliyamo/sports-hall-booking/internal/logging"
	"github.com/iliyamo/sports-hall-booking/internal/repository"
	"github.com/iliyamo/sports-hall-booking/internal/router"
	"github.com/iliyamo/sports-hall-booking/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config
	log := logging.New(cfg.Env, cfg.LogLevel)
	loc := cfg.HallLocation()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
		log.Info("schema up to date")
	}

	rdb := config.NewRedisClient(log) // nil when Redis is down
	if rdb != nil {
		defer rdb.Close()
	}

	publisher := events.New(events.Options{
		Broker:       cfg.EventBroker,
		AMQPURL:      cfg.AMQPURL,
		Queue:        cfg.EventsQueue,
		KafkaBrokers: cfg.KafkaBrokers,
		Topic:        cfg.EventsTopic,
	}, log)
	defer publisher.Close()

	halls := repository.NewHallRepo(db)
	windows := repository.NewAvailabilityRepo(db)
	appointments := repository.NewAppointmentRepo(db)
	reviews := repository.NewReviewRepo(db)

	booking := service.NewBookingService(halls, windows, appointments,
		lock.NewSlotLock(rdb, cfg.BookingLockTTL), publisher, log,
		service.BookingConfig{Location: loc, SlotLength: cfg.SlotLength(), CheckinLead: cfg.CheckinLead()}, nil)
	availability := service.NewAvailabilityService(halls, windows, log, loc)
	reviewSvc := service.NewReviewService(halls, appointments, reviews, log, nil)
	reports := service.NewReportService(appointments, loc, nil)

	e := router.New(router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log),
		Halls:        handler.NewHallHandler(halls, log),
		Appointments: handler.NewAppointmentHandler(booking, loc, log),
		Availability: handler.NewAvailabilityHandler(availability, loc, log),
		Reviews:      handler.NewReviewHandler(reviewSvc, reports, log),
		Health:       handler.Health(db),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
		Log:       log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "zone": loc.String()}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
