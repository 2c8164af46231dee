package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	journalx "github.com/tanpawarit/chative-intent-router/agent/journal"
	llmx "github.com/tanpawarit/chative-intent-router/agent/llm"
	routerx "github.com/tanpawarit/chative-intent-router/agent/router"
	servicex "github.com/tanpawarit/chative-intent-router/agent/service"
	configx "github.com/tanpawarit/chative-intent-router/pkg/config"
	_ "github.com/tanpawarit/chative-intent-router/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/chative-intent-router/pkg/qstash"
)

type AppConfig struct {
	Concurrency        int      `split_words:"true" default:"4"`
	Journal            []string `split_words:"true"`
	EscalationWebhook  string   `split_words:"true"`
	DisabledCategories []string `split_words:"true"`
	HistoryLimit       int      `split_words:"true" default:"20"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")
	if flag.Arg(0) == "history" {
		showHistory(ctx, flag.Args()[1:], appCfg.HistoryLimit)
		return
	}

	llmCfg := configx.MustNew[llmx.Config]("LLM")

	classifier, err := llmx.NewClassifier(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build classifier")
	}

	var disabled []contractx.Category
	for _, name := range appCfg.DisabledCategories {
		c, ok := contractx.ParseCategory(name)
		if !ok {
			log.Fatal().Str("category", name).Msg("unknown category in APP_DISABLED_CATEGORIES")
		}
		disabled = append(disabled, c)
	}
	handlers, err := llmx.NewHandlerRegistry(ctx, *llmCfg, disabled...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build handler registry")
	}

	router, err := routerx.New(classifier, handlers)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	journal, closeJournal := buildJournal(ctx, *appCfg)
	defer closeJournal()

	svc, err := servicex.New(router, journal)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build service")
	}

	requests := flag.Args()
	if len(requests) == 0 {
		requests = readLines(os.Stdin)
	}
	if len(requests) == 0 {
		fmt.Fprintln(os.Stderr, "usage: intent-router [-env file] <request>... | history [category]")
		os.Exit(2)
	}

	failed := false
	for _, res := range svc.HandleBatch(ctx, requests, appCfg.Concurrency) {
		if res.Err != nil {
			failed = true
			log.Error().Err(res.Err).Str("request", res.Request).Msg("request failed")
			continue
		}
		d := res.Output.Outcome.Decision
		fmt.Printf("[%s] %s (%.2f) -> %s\n", res.Output.RequestID, d.Category, d.Confidence, res.Output.Outcome.Reply)
	}
	if failed {
		os.Exit(1)
	}
}

func buildJournal(ctx context.Context, appCfg AppConfig) (contractx.Journal, func()) {
	var (
		journals journalx.Multi
		closers  []func()
	)

	for _, backend := range appCfg.Journal {
		switch strings.ToLower(strings.TrimSpace(backend)) {
		case "", "none":
		case "upstash":
			cfg := configx.MustNew[journalx.UpstashConfig]("UPSTASH_REDIS")
			j, err := journalx.NewUpstashJournal(*cfg)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to build upstash journal")
			}
			journals = append(journals, j)
		case "postgres":
			cfg := configx.MustNew[journalx.PostgresConfig]("POSTGRES")
			j, err := journalx.OpenPostgres(ctx, *cfg)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to open postgres journal")
			}
			journals = append(journals, j)
			closers = append(closers, func() { _ = j.Close() })
		default:
			log.Fatal().Str("journal", backend).Msg("unknown journal backend")
		}
	}

	if webhook := strings.TrimSpace(appCfg.EscalationWebhook); webhook != "" {
		qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
		forwarder, err := journalx.NewEscalationForwarder(qstashx.MustNew(*qstashCfg), webhook)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build escalation forwarder")
		}
		journals = append(journals, forwarder)
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(journals) == 0 {
		return journalx.Nop{}, closeAll
	}
	return journals, closeAll
}

// showHistory prints the most recent journal rows from Postgres, optionally
// filtered by category.
func showHistory(ctx context.Context, args []string, limit int) {
	var category contractx.Category
	if len(args) > 0 {
		c, ok := contractx.ParseCategory(args[0])
		if !ok {
			log.Fatal().Str("category", args[0]).Msg("unknown category")
		}
		category = c
	}

	cfg := configx.MustNew[journalx.PostgresConfig]("POSTGRES")
	j, err := journalx.OpenPostgres(ctx, *cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open postgres journal")
	}
	defer j.Close()

	entries, err := j.Recent(ctx, category, limit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read journal")
	}
	for _, e := range entries {
		d := e.Outcome.Decision
		fmt.Printf("%s [%s] %s (%.2f, %s) %q\n", e.CreatedAt.Format(time.RFC3339), e.RequestID, d.Category, d.Confidence, e.Outcome.Source, e.Request)
	}
}

func readLines(f *os.File) []string {
	info, err := f.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return nil
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("read stdin")
	}
	return lines
}
