// Package app wires the configured backends into the HTTP router
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitwise74/phone-verify/app/root"
	"bitwise74/phone-verify/app/verification"
	"bitwise74/phone-verify/aws"
	"bitwise74/phone-verify/config"
	"bitwise74/phone-verify/db"
	"bitwise74/phone-verify/internal"
	"bitwise74/phone-verify/internal/service"
	"bitwise74/phone-verify/internal/sms"
	"bitwise74/phone-verify/internal/store"
	"bitwise74/phone-verify/pkg/middleware"
	"bitwise74/phone-verify/pkg/phone"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewRouter builds the storage and sms backends selected in the config and
// returns the engine serving them. Background jobs stop when ctx is cancelled.
func NewRouter(ctx context.Context) (*gin.Engine, error) {
	repo, err := newRepository(ctx)
	if err != nil {
		return nil, err
	}

	sender, err := newSender(ctx)
	if err != nil {
		return nil, err
	}

	issuer, err := service.NewIssuer(&service.IssuerOpts{
		Normalizer: phone.NewNormalizer(viper.GetString("phone.default_region")),
		Repo:       repo,
		Sender:     sender,
		Policy:     config.Policy(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create issuer, %w", err)
	}

	return NewEngine(ctx, &internal.Deps{Issuer: issuer}), nil
}

// NewEngine registers the middleware and routes on top of already built deps
func NewEngine(ctx context.Context, d *internal.Deps) *gin.Engine {
	router := gin.New()

	if origins := viper.GetString("host.cors"); origins != "" {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  strings.Split(origins, ","),
			AllowMethods:  []string{"HEAD", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.Use(
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				if v := c.GetString("requestID"); v != "" {
					return []zapcore.Field{zap.String("request_id", v)}
				}

				return nil
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	main := router.Group("/api")

	if rateLimit := viper.GetInt("security.rate_limit"); rateLimit > 0 {
		main.Use(middleware.RateLimiterMiddleware(ctx, middleware.RateLimiterConfig{
			RequestsPerSecond: rateLimit,
			Burst:             rateLimit * 2,
		}))
	}

	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", root.Heartbeat)
	}

	v := main.Group("/verifications", middleware.BodySizeLimiter(4<<10))
	{
		// POST /api/verifications	-> Sends a verification code to a phone number
		v.POST("", func(c *gin.Context) { verification.Start(c, d) })
	}

	return router
}

func newRepository(ctx context.Context) (store.Repository, error) {
	switch t := viper.GetString("storage.type"); t {
	case "memory":
		zap.L().Warn("Using in-memory storage, verifications are lost on restart")
		return store.NewMemory(nil), nil
	case "sql":
		gdb, err := db.New(viper.GetString("sql.driver"), viper.GetString("sql.dsn"))
		if err != nil {
			return nil, err
		}

		repo := store.NewSQL(gdb, nil)

		if viper.GetBool("retention.enabled") {
			service.RetentionCleanup(ctx,
				viper.GetDuration("retention.interval"),
				viper.GetDuration("retention.max_age"),
				repo,
			)
		}

		return repo, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis, %w", err)
		}

		return store.NewRedis(rdb, nil), nil
	case "dynamodb":
		client, err := aws.NewDynamoDB(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize DynamoDB client, %w", err)
		}

		return store.NewDynamo(client.C, client.Table, nil), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", t)
	}
}

func newSender(ctx context.Context) (sms.Sender, error) {
	switch p := viper.GetString("sms.provider"); p {
	case "sns":
		client, err := aws.NewSNS(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SNS client, %w", err)
		}

		return sms.NewSNS(client, viper.GetString("sms.sender_id")), nil
	case "log":
		return sms.NewLog(), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider %q", p)
	}
}
