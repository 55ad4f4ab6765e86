// Command ordersim runs the ordering assistant as a text conversation in the
// terminal. Orders go through the same pipeline and database as phone calls.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"fareast/internal/agent"
	"fareast/internal/broadcast"
	"fareast/internal/config"
	"fareast/internal/database"
	"fareast/internal/logging"
	"fareast/internal/menu"
	"fareast/internal/monitoring"
	"fareast/internal/orders"
	"fareast/internal/pricing"
	"fareast/internal/telephony"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	verbose    = flag.Bool("v", false, "Print tool calls as they happen")
)

// localLine stands in for the phone line
type localLine struct {
	ended atomic.Bool
}

func (l *localLine) Complete(_ context.Context, _ string) error {
	l.ended.Store(true)
	return nil
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// keep the log quiet so it does not interleave with the conversation
	logger, err := logging.New("warn", false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.Open(database.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		logger.Fatalw("Failed to open database", "error", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		logger.Fatalw("Failed to migrate database", "error", err)
	}
	seed, err := menu.DefaultSeed()
	if cfg.Menu.SeedFile != "" {
		seed, err = menu.SeedFile(cfg.Menu.SeedFile)
	}
	if err != nil {
		logger.Fatalw("Failed to read menu", "error", err)
	}
	if _, err := menu.Seed(db, seed); err != nil {
		logger.Fatalw("Failed to seed menu", "error", err)
	}
	catalog, err := menu.Load(db)
	if err != nil {
		logger.Fatalw("Failed to load menu", "error", err)
	}

	model, err := agent.NewModel(agent.ModelConfig{
		Model:   cfg.Agent.Model,
		Token:   cfg.Agent.OpenAIKey,
		BaseURL: cfg.Agent.BaseURL,
	})
	if err != nil {
		logger.Fatalw("Failed to create model", "error", err)
	}

	metrics := monitoring.NewMetricsCollector()
	repo := orders.NewRepository(db, orders.PolicyFor(cfg.Orders.StrictTransitions))
	pipeline := orders.NewPipeline(
		repo,
		orders.NewNumberer(repo, cfg.Location()),
		pricing.NewResolver(catalog),
		broadcast.NewHub(metrics, logger),
		metrics,
		logger,
	)

	line := &localLine{}
	tools := agent.NewCallTools(pipeline, telephony.NewTerminator(line, 0, metrics, logger))
	tools.SetCallSID("SIM-" + uuid.NewString())

	session := agent.NewSession(
		model,
		tools,
		agent.Instructions(cfg.Restaurant.Name, catalog),
		cfg.Agent.MaxToolRounds,
		logger,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reply, err := session.Start(ctx)
	if err != nil {
		logger.Fatalw("Assistant failed to answer", "error", err)
	}
	fmt.Printf("assistant> %s\n", reply)

	scanner := bufio.NewScanner(os.Stdin)
	seen := 0
	for !line.ended.Load() {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		reply, err := session.Say(ctx, text)
		if *verbose {
			results := session.ToolResults()
			for _, r := range results[seen:] {
				fmt.Printf("  [%s %s] %s\n", r.Name, r.Arguments, r.Output)
			}
			seen = len(results)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fmt.Printf("assistant> %s\n", reply)
	}

	if line.ended.Load() {
		fmt.Println("(call ended)")
	}
}
