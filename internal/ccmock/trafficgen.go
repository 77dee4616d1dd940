package ccmock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/event"
)

// QueueWeight pairs a queue name with a relative weight for distribution.
type QueueWeight struct {
	Queue  string
	Weight float64
}

// TrafficGenerator pushes synthetic contact reservations to the mock
// backend at a configurable rate, for demo and soak scenarios against a
// live agent session.
type TrafficGenerator struct {
	server *Server
	logger zerolog.Logger

	mu             sync.RWMutex
	contactsPerMin float64
	queues         []QueueWeight
}

// NewTrafficGenerator creates a generator with default queue weights.
func NewTrafficGenerator(server *Server, contactsPerMin float64, logger zerolog.Logger) *TrafficGenerator {
	return &TrafficGenerator{
		server:         server,
		logger:         logger.With().Str("component", "trafficgen").Logger(),
		contactsPerMin: contactsPerMin,
		queues: []QueueWeight{
			{Queue: "Billing", Weight: 4},
			{Queue: "Support", Weight: 3},
			{Queue: "Sales", Weight: 2},
			{Queue: "Retention", Weight: 1},
		},
	}
}

// SetRate updates the reservation rate. Zero pauses generation.
func (g *TrafficGenerator) SetRate(contactsPerMin float64) {
	g.mu.Lock()
	g.contactsPerMin = contactsPerMin
	g.mu.Unlock()
}

// Rate returns the current reservation rate.
func (g *TrafficGenerator) Rate() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.contactsPerMin
}

// Run generates reservations until ctx is cancelled.
func (g *TrafficGenerator) Run(ctx context.Context) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		g.mu.RLock()
		rate := g.contactsPerMin
		queues := g.queues
		g.mu.RUnlock()

		if rate <= 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
				continue
			}
		}

		// Poisson-ish sleep: base interval with +/-25% jitter.
		baseSleep := time.Duration(float64(time.Minute) / rate)
		jitter := time.Duration(float64(baseSleep) * (rng.Float64()*0.5 - 0.25))
		sleep := baseSleep + jitter
		if sleep < time.Millisecond {
			sleep = time.Millisecond
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}

		queue := pickQueue(rng, queues)
		interactionID := uuid.NewString()
		g.server.Push(event.KindAgentContactReserved, map[string]any{
			"interactionId": interactionID,
			"queueName":     queue,
			"interaction": map[string]any{
				"interactionId": interactionID,
				"state":         "new",
				"mediaType":     "telephony",
				"callProcessingDetails": map[string]any{
					"ani":             randomANI(rng),
					"virtualTeamName": queue,
				},
			},
		})
		g.logger.Debug().
			Str("interaction_id", interactionID).
			Str("queue", queue).
			Float64("rate", rate).
			Msg("reservation pushed")
	}
}

// pickQueue selects a queue based on the configured weights.
func pickQueue(rng *rand.Rand, queues []QueueWeight) string {
	if len(queues) == 0 {
		return ""
	}

	var total float64
	for _, q := range queues {
		total += q.Weight
	}

	r := rng.Float64() * total
	for _, q := range queues {
		r -= q.Weight
		if r <= 0 {
			return q.Queue
		}
	}
	return queues[len(queues)-1].Queue
}

func randomANI(rng *rand.Rand) string {
	return fmt.Sprintf("+1555%07d", rng.Intn(10000000))
}
