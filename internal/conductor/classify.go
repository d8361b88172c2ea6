package conductor

import (
	"time"
)

// Classifier derives per-runner facts from manager data. Classifications
// are computed fresh per query; nothing is cached. A runner whose
// enrichment failed is excluded from every classification — treating it as
// unmanaged would be a false signal.
type Classifier struct {
	StaleThreshold time.Duration

	// now is swappable for tests; zero value means time.Now.
	now func() time.Time
}

// NewClassifier builds a classifier with the given stale threshold.
func NewClassifier(staleThreshold time.Duration) *Classifier {
	return &Classifier{StaleThreshold: staleThreshold}
}

func (c *Classifier) evalTime() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// FullyHealthy reports whether the runner has managers and every one of
// them is online. Checking only the first manager is wrong: a rotation
// leaves an old online manager in front of a dead new one (or vice versa).
func (c *Classifier) FullyHealthy(r EnrichedRunner) bool {
	if !r.Enriched() || len(r.Managers) == 0 {
		return false
	}
	for _, m := range r.Managers {
		if !m.Online() {
			return false
		}
	}
	return true
}

// Degraded reports whether the runner has managers and none are online.
func (c *Classifier) Degraded(r EnrichedRunner) bool {
	if !r.Enriched() || len(r.Managers) == 0 {
		return false
	}
	for _, m := range r.Managers {
		if m.Online() {
			return false
		}
	}
	return true
}

// Unmanaged reports whether the runner has an empty manager list.
func (c *Classifier) Unmanaged(r EnrichedRunner) bool {
	return r.Enriched() && len(r.Managers) == 0
}

// Stale reports whether every manager's last contact is older than the
// threshold. A manager that never reported contact counts as stale.
func (c *Classifier) Stale(r EnrichedRunner) bool {
	if !r.Enriched() || len(r.Managers) == 0 {
		return false
	}
	cutoff := c.evalTime().Add(-c.StaleThreshold)
	for _, m := range r.Managers {
		if m.ContactedAt != nil && m.ContactedAt.After(cutoff) {
			return false
		}
	}
	return true
}

// Rotating reports whether the runner has more than one manager, i.e. a
// rotation is in progress right now.
func (c *Classifier) Rotating(r EnrichedRunner) bool {
	return r.Enriched() && len(r.Managers) > 1
}
