package app

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/guide-booking-backend/internal/account"
	accountHttp "github.com/nekogravitycat/guide-booking-backend/internal/account/http"
	"github.com/nekogravitycat/guide-booking-backend/internal/api"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/availability"
	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/guide-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/guide-booking-backend/internal/config"
	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	guideHttp "github.com/nekogravitycat/guide-booking-backend/internal/guide/http"
	"github.com/nekogravitycat/guide-booking-backend/internal/notification"
	"github.com/nekogravitycat/guide-booking-backend/internal/photo"
	photoHttp "github.com/nekogravitycat/guide-booking-backend/internal/photo/http"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/guide-booking-backend/internal/review"
	reviewHttp "github.com/nekogravitycat/guide-booking-backend/internal/review/http"
)

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager

	closers []func() error
}

// Close releases outbound connections such as the Kafka writer.
func (c *Container) Close() error {
	var errs []error
	for _, fn := range c.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg *config.Config, pool *pgxpool.Pool, log *logrus.Logger) (*Container, error) {
	c := &Container{}
	clk := clock.System()

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	c.JWTManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTokenTTL)

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	// Account Module
	accountService := account.NewService(account.NewPgxRepository(pool), passwordHasher, clk, log)

	// Photo Module
	photoService := photo.NewService(photo.NewPgxRepository(pool), store, clk, log)
	photoHandler := photoHttp.NewHandler(photoService, log)

	// Guide Module
	guideService := guide.NewService(guide.NewPgxRepository(pool), cfg.DefaultCurrency)

	// Notifications
	notifier, err := c.buildNotifier(cfg, accountService, log)
	if err != nil {
		return nil, err
	}

	// Booking Module
	calculator := availability.NewCalculator(cfg.WorkingBlocks)
	bookingService := booking.NewService(booking.NewPgxRepository(pool), guideService, calculator, notifier, clk, log)

	// Review Module
	reviewService := review.NewService(review.NewPgxRepository(pool), bookingService, log)

	c.Router = api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Logger:         log,
		JWTManager:     c.JWTManager,
		AccountHandler: accountHttp.NewHandler(accountService, c.JWTManager),
		GuideHandler:   guideHttp.NewHandler(guideService, photoHandler),
		PhotoHandler:   photoHandler,
		BookingHandler: bookingHttp.NewHandler(bookingService),
		ReviewHandler:  reviewHttp.NewHandler(reviewService),
	})

	return c, nil
}

// buildNotifier always logs events. Kafka and e-mail delivery are added when
// configured, each behind its own circuit breaker.
func (c *Container) buildNotifier(cfg *config.Config, book notification.AddressBook, log *logrus.Logger) (notification.Notifier, error) {
	sinks := notification.Multi{notification.NewLogNotifier(log)}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return nil, fmt.Errorf("init kafka notifier: %w", err)
		}
		c.closers = append(c.closers, kafka.Close)
		sinks = append(sinks, notification.NewBreakerNotifier("kafka", kafka, log))
	}

	if cfg.SMTP.Enabled() {
		email := notification.NewEmailNotifier(notification.EmailConfig{
			Host: cfg.SMTP.Host,
			Port: cfg.SMTP.Port,
			User: cfg.SMTP.User,
			Pass: cfg.SMTP.Pass,
			From: cfg.SMTP.From,
		}, book)
		sinks = append(sinks, notification.NewBreakerNotifier("email", email, log))
	}

	return sinks, nil
}
