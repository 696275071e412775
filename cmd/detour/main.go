package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agenthands/detour/internal/assist"
	"github.com/agenthands/detour/internal/config"
	"github.com/agenthands/detour/internal/geomap"
	"github.com/agenthands/detour/internal/llm"
	"github.com/agenthands/detour/internal/store"
)

func main() {
	origin := flag.String("origin", "", "origin city of the deviated route")
	destination := flag.String("destination", "", "destination city of the deviated route")
	anomalyTime := flag.String("time", "", "time the deviation was detected (HH:MM)")
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if *origin == "" || *destination == "" || *anomalyTime == "" {
		fmt.Fprintln(os.Stderr, "usage: detour --origin <city> --destination <city> --time <HH:MM>")
		os.Exit(2)
	}

	// Credentials may come from a .env file or the real environment.
	_ = godotenv.Load()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *origin, *destination, *anomalyTime); err != nil {
		logger.Fatal("interaction failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, origin, destination, anomalyTime string) error {
	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	tables := store.NewTables(cfg.Store)
	convLog := store.NewConversationLog(cfg.Store.ConversationsPath)
	conv := assist.NewConversationalist(client, cfg.Prompts)
	assistant := assist.NewAssistant(conv, tables, convLog, cfg.Assistant, cfg.Prompts, logger)
	maps := geomap.NewMapBuilder(cfg.Mapping, nil, logger)

	p := &stdinPrompter{in: bufio.NewScanner(os.Stdin)}
	out, err := assistant.Run(ctx, p, origin, destination, anomalyTime)
	if err != nil {
		return err
	}

	if out.Escalated {
		fmt.Printf("Interaction ended with a partial record after %d rounds (conversation %s).\n",
			out.Rounds, out.ConversationID)
		return nil
	}

	mapPath, err := maps.Build(ctx, out.Case.NewRoute, out.ConversationID)
	switch {
	case err == nil:
		fmt.Printf("New route map generated: %s\n", mapPath)
	case errors.Is(err, geomap.ErrTooFewPlaces):
		fmt.Println("Cannot generate map: the revised route names fewer than 2 places.")
	case errors.Is(err, geomap.ErrTooFewCoordinates):
		fmt.Println("Cannot generate map: not enough places could be resolved to coordinates.")
	default:
		logger.Warn("map generation failed", zap.Error(err))
		fmt.Println("Cannot generate map: routing call failed.")
	}

	msg, err := conv.DraftCustomerMessage(ctx, out.Case.Cause, out.Case.NewETA, out.Case.NewRoute)
	if err != nil {
		logger.Warn("customer message draft failed", zap.Error(err))
		msg = cfg.Prompts.CustomerMessageFallback
	}
	fmt.Println("\nCustomer notice:")
	fmt.Println(msg)

	return nil
}

type stdinPrompter struct {
	in *bufio.Scanner
}

func (p *stdinPrompter) Say(text string) {
	fmt.Println(text)
}

func (p *stdinPrompter) Ask(question string) (string, error) {
	fmt.Println(question)
	fmt.Print("Your response: ")
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("input closed")
	}
	return p.in.Text(), nil
}
