package account

import (
	"context"
	"log/slog"

	"github.com/Causertragique/financeautonome2-sub001/internal/docstore"
	"github.com/google/uuid"
)

// PartitionCollection holds one marker document per (account, partition).
const PartitionCollection = "partitions"

// PartitionInitializer provisions the mode-specific data partitions once, at
// first reconciliation. The marker payload is constant so the write is
// idempotent, and every failure is isolated: partition existence is a lazy
// optimization, the first real data write completes it implicitly.
type PartitionInitializer struct {
	store docstore.Store
	log   *slog.Logger
}

func NewPartitionInitializer(store docstore.Store, log *slog.Logger) *PartitionInitializer {
	if log == nil {
		log = slog.Default()
	}
	return &PartitionInitializer{store: store, log: log}
}

// Initialize writes one marker per partition derived from mode. It never
// fails the caller; an unset mode derives no partitions and is a no-op.
func (p *PartitionInitializer) Initialize(ctx context.Context, accountID uuid.UUID, mode UsageMode) {
	for _, name := range mode.Partitions() {
		docID := accountID.String() + ":" + name
		err := p.store.MergeWrite(ctx, PartitionCollection, docID, docstore.Document{
			"account_id":  accountID.String(),
			"partition":   name,
			"initialized": true,
		})
		if err != nil {
			p.log.Error("partition marker write failed",
				"account_id", accountID.String(), "partition", name, "error", err)
			continue
		}
		p.log.Info("partition initialized",
			"account_id", accountID.String(), "partition", name)
	}
}
