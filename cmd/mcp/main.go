package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richard-senior/footstats/internal/config"
	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/internal/processor"
	"github.com/richard-senior/footstats/pkg/server"
	"github.com/richard-senior/footstats/pkg/service"
	"github.com/richard-senior/footstats/pkg/store"
	"github.com/richard-senior/footstats/pkg/tools"
	"github.com/richard-senior/footstats/pkg/transport"
	"github.com/richard-senior/footstats/pkg/util/elo"
)

func main() {
	// Parse command line flags
	debug := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", os.Getenv("FOOTSTATS_CONFIG"), "YAML config file")
	inputFile := flag.String("input", "", "Input file path (if not provided, stdin will be used)")
	outputFile := flag.String("output", "", "Output file path (if not provided, stdout will be used)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	logger.SetShowDateTime(cfg.Log.ShowDateTime)
	if *debug {
		logger.SetLevel(logger.DEBUG)
		logger.Debug("Debug logging enabled")
	}

	// Determine input source
	var input []byte
	if *inputFile != "" {
		input, err = os.ReadFile(*inputFile)
		if err != nil {
			logger.Fatal("Failed to read input file", err)
		}
	} else if args := flag.Args(); len(args) > 0 {
		// Create a shorthand request from command line arguments
		input, err = json.Marshal(processor.Request{
			Query:     strings.Join(args, " "),
			RequestID: fmt.Sprintf("cli-%d", os.Getpid()),
		})
		if err != nil {
			logger.Fatal("Failed to create request from command line arguments", err)
		}
	} else {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatal("Failed to read from stdin", err)
		}
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to open database", err)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", err)
	}

	svc := service.New(st, elo.New(cfg.Engine.Elo), cfg.Engine.League, nil)
	srv := server.New(transport.NewStreamTransport(bytes.NewReader(nil), io.Discard), "cli")
	srv.RegisterTools(tools.New(svc, nil, cfg.FootballData.DaysBack, cfg.FootballData.DaysForward).Registrations())

	result, err := processor.ProcessRequest(ctx, srv, input)
	if err != nil {
		logger.Error("Failed to process request", err)
		os.Exit(1)
	}

	// Determine output destination
	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, result, 0644); err != nil {
			logger.Fatal("Failed to write to output file", err)
		}
	} else if len(result) > 0 {
		fmt.Println(string(result))
	}
}
