package source

import (
	"context"

	"enforcement_watch_bot/internal/domain/record"
)

// Source produces the current full set of raw candidates from the
// regulator's site. Implementations own their transport and timeouts; a
// returned error means the run must abort before touching the store.
type Source interface {
	Fetch(ctx context.Context) ([]record.Raw, error)
}
