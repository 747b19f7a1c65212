package jobs

import (
	"context"
	"log"
	"time"

	"challenge-pool/internal/services"
)

// settleBatchSize caps how many challenges one tick settles.
const settleBatchSize = 100

// ChallengeSettler periodically settles challenges that passed their end date
type ChallengeSettler struct {
	settlementService *services.SettlementService
	interval          time.Duration
	stopChan          chan struct{}
}

// NewChallengeSettler creates a new settler job
func NewChallengeSettler(settlementService *services.SettlementService, interval time.Duration) *ChallengeSettler {
	return &ChallengeSettler{
		settlementService: settlementService,
		interval:          interval,
		stopChan:          make(chan struct{}),
	}
}

// Start begins the settlement loop
func (cs *ChallengeSettler) Start() {
	log.Printf("[Settler] Starting settlement job (interval: %v)", cs.interval)

	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cs.settleExpired()
		case <-cs.stopChan:
			log.Println("[Settler] Stopping settlement job")
			return
		}
	}
}

// Stop stops the settlement loop
func (cs *ChallengeSettler) Stop() {
	close(cs.stopChan)
}

func (cs *ChallengeSettler) settleExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), cs.interval)
	defer cancel()

	settled, err := cs.settlementService.SettleExpired(ctx, settleBatchSize)
	if err != nil {
		log.Printf("[Settler] Error settling expired challenges: %v", err)
		return
	}

	if settled > 0 {
		log.Printf("[Settler] Settled %d challenges", settled)
	}
}
