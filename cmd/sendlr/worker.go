package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sendlr/sendlr/config"
	"github.com/sendlr/sendlr/internal/delivery"
	"github.com/sendlr/sendlr/internal/executor"
	"github.com/sendlr/sendlr/internal/mail"
	"github.com/sendlr/sendlr/internal/news"
	"github.com/sendlr/sendlr/internal/queue/streams"
	"github.com/sendlr/sendlr/internal/store"
	"github.com/sendlr/sendlr/internal/summary"
	"github.com/sendlr/sendlr/internal/worker"
)

func workerCMD() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the delivery worker and delayed-event dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			logger := log.New(os.Stdout, "[WORKER] ", log.LstdFlags)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}
			defer st.DB.Close()

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Storage.Redis.Addr(),
				Password: cfg.Storage.Redis.Password,
				DB:       cfg.Storage.Redis.DB,
			})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
			if err := streams.EnsureGroup(ctx, rdb, streams.StreamDeliver, worker.Group); err != nil {
				return err
			}

			publisher := streams.NewPublisher(rdb)
			hostname, _ := os.Hostname()
			consumer := streams.NewConsumer(rdb, worker.Group, fmt.Sprintf("%s-%d", hostname, os.Getpid()))

			fetcher := news.NewClient(news.ClientOptions{
				APIKey:            cfg.NewsAPI.APIKey,
				Endpoint:          cfg.NewsAPI.Endpoint,
				HeadlinesEndpoint: cfg.NewsAPI.HeadlinesEndpoint,
				RequestDelay:      cfg.NewsAPI.RequestDelay,
				MaxPerCategory:    cfg.NewsAPI.MaxPerCategory,
				LookbackDays:      cfg.NewsAPI.LookbackDays,
				Timeout:           cfg.NewsAPI.Timeout,
			}, nil, nil)

			summarizer := summary.NewService(nil,
				summary.NewGroqSummarizer(summary.GroqOptions{
					APIKey:      cfg.LLM.APIKey,
					Endpoint:    cfg.LLM.Endpoint,
					Model:       cfg.LLM.Model,
					Temperature: cfg.LLM.Temperature,
					MaxTokens:   cfg.LLM.MaxTokens,
					Timeout:     cfg.LLM.Timeout,
				}),
				summary.NewFallbackSummarizer(),
			)

			mailer := mail.NewClient(mail.ClientOptions{
				APIKey:   cfg.Email.APIKey,
				Endpoint: cfg.Email.Endpoint,
				From:     cfg.Email.From,
				Timeout:  cfg.Email.Timeout,
			})

			pipeline := delivery.NewPipeline(delivery.PipelineOptions{
				Preferences: st,
				Runs:        st,
				Executor: executor.New(
					executor.WithCheckpointManager(executor.NewStoreCheckpointManager(st)),
				),
				Fetcher:         fetcher,
				Summarizer:      summarizer,
				Mailer:          mailer,
				Publisher:       publisher,
				DefaultSendTime: cfg.Delivery.DefaultSendTime,
				StepMaxRetries:  cfg.Delivery.StepMaxRetries,
				StepRetryDelay:  cfg.Delivery.StepRetryDelay,
				Logger:          logger,
			})

			processor := worker.NewProcessor(logger, st, consumer, pipeline, streams.StreamDeliver)
			dispatcher := streams.NewDispatcher(rdb, publisher, cfg.Delivery.DispatchInterval, logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return processor.Start(gctx) })
			g.Go(func() error {
				if err := dispatcher.Run(gctx); err != nil && gctx.Err() == nil {
					return err
				}
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	return cmd
}
