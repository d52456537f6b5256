package manager

import (
	"log/slog"
	"sort"

	"clipstream/internal/domain"
	"clipstream/internal/metrics"
	"clipstream/internal/services/player"
)

// unknownDistance ranks keys with no registered index as farthest, so they
// are evicted before anything the feed still tracks.
const unknownDistance = 1 << 30

// distanceLocked returns the absolute index distance between id and from.
// Caller must hold m.mu.
func (m *Manager) distanceLocked(id domain.VideoID, from int) int {
	idx, ok := m.indexes[id]
	if !ok {
		return unknownDistance
	}
	d := idx - from
	if d < 0 {
		d = -d
	}
	return d
}

// evictForInsertLocked frees a slot for a new key when at capacity. The
// candidate set is every assigned key except the active one; when it is
// empty the acquisition fails instead of evicting the active entry. Prewarm
// keys are lower eviction priority than plain cached keys but are still
// sacrificed rather than failing. Attempts are bounded at pool size.
// Caller must hold m.mu; returned victims are disposed outside the lock.
func (m *Manager) evictForInsertLocked(id domain.VideoID) ([]*player.Handle, error) {
	var victims []*player.Handle
	attempts := m.capacity
	for len(m.assigned) >= m.capacity {
		if attempts <= 0 {
			return victims, domain.ErrPoolExhausted
		}
		attempts--
		victim, ok := m.evictionCandidateLocked()
		if !ok {
			return victims, domain.ErrPoolExhausted
		}
		h := m.assigned[victim]
		m.removeLocked(victim)
		if h != nil {
			victims = append(victims, h)
		}
		metrics.EvictionsTotal.WithLabelValues("distance").Inc()
		m.logger.Debug("evicted pool entry",
			slog.String("videoId", string(victim)),
			slog.String("for", string(id)),
		)
	}
	return victims, nil
}

// evictionCandidateLocked picks the entry to evict: never the active key;
// non-prewarm before prewarm; within a tier the greatest distance from the
// active index, oldest access breaking ties. Caller must hold m.mu.
func (m *Manager) evictionCandidateLocked() (domain.VideoID, bool) {
	var (
		best      domain.VideoID
		bestWarm  bool
		bestDist  = -1
		found     bool
	)
	for id := range m.assigned {
		if m.hasActive && id == m.activeID {
			continue
		}
		_, warm := m.prewarm[id]
		dist := m.distanceLocked(id, m.activeIndex)
		if !found {
			best, bestWarm, bestDist, found = id, warm, dist, true
			continue
		}
		// A plain cached key always beats a prewarm key.
		if bestWarm != warm {
			if bestWarm && !warm {
				best, bestWarm, bestDist = id, warm, dist
			}
			continue
		}
		if dist > bestDist {
			best, bestWarm, bestDist = id, warm, dist
			continue
		}
		if dist == bestDist && m.lastAccess[id].Before(m.lastAccess[best]) {
			best, bestWarm, bestDist = id, warm, dist
		}
	}
	return best, found
}

// removeLocked forgets a key's pool entry, keeping the index registration so
// a re-acquisition still scores distance correctly. Caller must hold m.mu.
func (m *Manager) removeLocked(id domain.VideoID) {
	delete(m.assigned, id)
	delete(m.lastAccess, id)
	delete(m.prewarm, id)
	metrics.PoolResidents.Set(float64(len(m.assigned)))
}

// HandleMemoryPressure releases roughly half of all assigned entries,
// selected by ascending priority: the active key survives, plain cached
// keys go first in descending distance from the active index, prewarm keys
// go last among the unprotected.
func (m *Manager) HandleMemoryPressure() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	target := len(m.assigned) / 2
	if target == 0 {
		m.mu.Unlock()
		return
	}

	type candidate struct {
		id   domain.VideoID
		warm bool
		dist int
	}
	candidates := make([]candidate, 0, len(m.assigned))
	for id := range m.assigned {
		if m.hasActive && id == m.activeID {
			continue
		}
		_, warm := m.prewarm[id]
		candidates = append(candidates, candidate{
			id:   id,
			warm: warm,
			dist: m.distanceLocked(id, m.activeIndex),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].warm != candidates[j].warm {
			return !candidates[i].warm
		}
		return candidates[i].dist > candidates[j].dist
	})
	if target > len(candidates) {
		target = len(candidates)
	}

	victims := make([]*player.Handle, 0, target)
	for _, c := range candidates[:target] {
		if h := m.assigned[c.id]; h != nil {
			victims = append(victims, h)
		}
		m.removeLocked(c.id)
		metrics.EvictionsTotal.WithLabelValues("memory_pressure").Inc()
	}
	released := len(victims)
	resident := len(m.assigned)
	m.mu.Unlock()

	m.disposeAll(victims)
	metrics.MemoryPressureTotal.Inc()
	m.logger.Info("memory pressure release",
		slog.Int("released", released),
		slog.Int("resident", resident),
	)
	if released > 0 {
		m.notifyChange()
	}
}
