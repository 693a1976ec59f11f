package main

import (
	"context"
	"log"

	"newsletter/handlers/subscribe/internal/api"
	"newsletter/handlers/subscribe/internal/config"
	"newsletter/handlers/subscribe/internal/handler"
	"newsletter/handlers/subscribe/internal/logging"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	logger, err := logging.New(logging.ConfigFromEnv())
	if err != nil {
		log.Fatalln("logger error: " + err.Error())
	}
	defer logger.Sync()

	creds, err := config.LoadFromEnv(context.TODO())
	if err != nil {
		log.Fatalln("configuration error: " + err.Error())
	}

	mc := api.NewMailchimpAPI(nil, api.MembersEndpoint)
	h := handler.New(creds, mc, logger)

	lambda.Start(h.Subscribe)
}
