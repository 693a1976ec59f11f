// Command local serves the subscribe handler on a local port for testing the signup form.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"newsletter/handlers/subscribe/internal/api"
	"newsletter/handlers/subscribe/internal/config"
	"newsletter/handlers/subscribe/internal/handler"
	"newsletter/handlers/subscribe/internal/localhttp"
	"newsletter/handlers/subscribe/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables still apply
	_ = godotenv.Load()

	logger, err := logging.New(logging.ConfigFromEnv())
	if err != nil {
		log.Fatalln("logger error: " + err.Error())
	}
	defer logger.Sync()

	creds, err := config.LoadFromEnv(context.Background())
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	h := handler.New(creds, api.NewMailchimpAPI(nil, api.MembersEndpoint), logger)

	mux := http.NewServeMux()
	mux.Handle("/subscribe", localhttp.Handler(h.Subscribe, logger))

	addr := os.Getenv("LOCAL_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	logger.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
