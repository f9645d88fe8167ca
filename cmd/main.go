package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	cfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/adiazny/zermelo-lambda/internal/pkg/dispatch"
	"github.com/adiazny/zermelo-lambda/internal/pkg/zermelo"
)

type environmentVariables struct {
	PortalURL          string `env:"ZERMELO_PORTAL_URL,required"`
	APIToken           string `env:"ZERMELO_API_TOKEN,required"`
	TopicARN           string `env:"TOPIC_ARN"`
	HTTPTimeoutSeconds int    `env:"HTTP_TIMEOUT_SECONDS" envDefault:"10"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

func setup() (envVars *environmentVariables, err error) {
	_, err = maxprocs.Set()
	if err != nil {
		return nil, fmt.Errorf("error setting GOMAXPROCS %w", err)
	}

	// a missing .env file is fine, lambda configures through the environment
	_ = godotenv.Load()

	envVars = &environmentVariables{}

	err = env.Parse(envVars)
	if err != nil {
		return nil, fmt.Errorf("error parsing environment variables %w", err)
	}

	return envVars, nil
}

func newLogger(level string) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logrus.NewEntry(logger).WithField("component", "zermelo")
}

func newDispatcher(ctx context.Context, envVars *environmentVariables, log *logrus.Entry) (*dispatch.Dispatcher, error) {
	d := &dispatch.Dispatcher{
		Log: log,
		Zermelo: &zermelo.Client{
			Log: log,
			Config: zermelo.Config{
				BaseURL:  envVars.PortalURL,
				APIToken: envVars.APIToken,
			},
			HTTP: &http.Client{
				Timeout: time.Duration(envVars.HTTPTimeoutSeconds) * time.Second,
			},
		},
	}

	if envVars.TopicARN == "" {
		return d, nil
	}

	awsConfig, err := cfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config %w", err)
	}

	d.SNS = sns.NewFromConfig(awsConfig)
	d.TopicARN = envVars.TopicARN

	return d, nil
}

func main() {
	envVars, err := setup()
	if err != nil {
		logrus.WithError(err).Error()
		os.Exit(1)
	}

	log := newLogger(envVars.LogLevel)
	log.Info("starting up")

	d, err := newDispatcher(context.Background(), envVars, log)
	if err != nil {
		log.WithError(err).Error()
		os.Exit(1)
	}

	lambda.Start(d.Handle)
}
