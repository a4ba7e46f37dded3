package remote

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultProbeTimeout bounds each card probe during discovery.
const DefaultProbeTimeout = 500 * time.Millisecond

const maxConcurrentProbes = 8

// Discovery is one endpoint that answered the card probe.
type Discovery struct {
	Endpoint string     `json:"endpoint"`
	Card     *AgentCard `json:"card"`
}

// Discover probes endpoints concurrently and returns the ones serving an
// agent card, preserving the input order. Endpoints that do not answer
// within probeTimeout are skipped. A probeTimeout <= 0 uses
// DefaultProbeTimeout.
func Discover(ctx context.Context, c Client, endpoints []string, probeTimeout time.Duration) []Discovery {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	cards := make([]*AgentCard, len(endpoints))

	var g errgroup.Group
	g.SetLimit(maxConcurrentProbes)
	for i, ep := range endpoints {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			if card, err := c.Discover(probeCtx, ep); err == nil {
				cards[i] = card
			}
			return nil
		})
	}
	_ = g.Wait()

	var found []Discovery
	for i, card := range cards {
		if card != nil {
			found = append(found, Discovery{Endpoint: endpoints[i], Card: card})
		}
	}
	return found
}
