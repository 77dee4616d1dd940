package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/centrivo/agentcc/internal/ccmock"
)

func main() {
	var (
		addr    = flag.String("addr", ":8080", "Listen address")
		agentID = flag.String("agent-id", "agent-1", "Agent id returned on the welcome event")
		traffic = flag.Float64("traffic", 0, "Synthetic reservations per minute (0 disables)")

		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Str("service", "ccmock").
		Logger()

	srv := ccmock.NewServer(*agentID, log.Logger)

	if *traffic > 0 {
		gen := ccmock.NewTrafficGenerator(srv, *traffic, log.Logger)
		go gen.Run(context.Background())
		log.Info().Float64("contacts_per_min", *traffic).Msg("traffic generator running")
	}

	log.Info().Str("addr", *addr).Str("agent_id", *agentID).Msg("mock contact-center backend listening")
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
