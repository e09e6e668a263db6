package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"bitwise74/phone-verify/app"
	"bitwise74/phone-verify/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	err = app.MakeLogger()
	if err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router, err := app.NewRouter(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize router", zap.Error(err))
	}

	addr := fmt.Sprintf(":%d", viper.GetInt("host.port"))
	zap.L().Info("Server starting", zap.String("addr", addr))

	err = router.Run(addr)
	if err != nil {
		zap.L().Fatal("Server stopped", zap.Error(err))
	}
}
