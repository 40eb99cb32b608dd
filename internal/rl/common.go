// Package rl implements the nine tabular reinforcement-learning algorithms
// the engine maintains Q-value tables for, plus trajectory bookkeeping and
// the reward-differentiation policy applied to post-edit/post-command
// events.
package rl

import "sync"

// QCell is one (state, action) pair's learned value.
type QCell struct {
	QValue     float64
	Visits     int64
	LastUpdate int64
}

// Table is the update surface every algorithm implements. All nine share
// this interface; they differ only in what "effective reward" they feed
// into the canonical q_new = q_old + alpha*(effective - q_old) update.
type Table interface {
	Name() string
	Learn(key string, reward, alpha float64, now int64) QCell
	Snapshot() map[string]QCell
	Restore(map[string]QCell)
}

// tableBase holds the shared map[key]QCell plus locking every concrete
// algorithm embeds, mirroring the single in-memory qTable pattern common
// Q-learning implementations use before a backing store is involved.
type tableBase struct {
	name string
	mu   sync.RWMutex
	rows map[string]QCell
}

func newTableBase(name string) tableBase {
	return tableBase{name: name, rows: make(map[string]QCell)}
}

func (t *tableBase) Name() string { return t.name }

func (t *tableBase) get(key string) QCell {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows[key]
}

func (t *tableBase) set(key string, cell QCell) QCell {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[key] = cell
	return cell
}

func (t *tableBase) Snapshot() map[string]QCell {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]QCell, len(t.rows))
	for k, v := range t.rows {
		out[k] = v
	}
	return out
}

func (t *tableBase) Restore(rows map[string]QCell) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make(map[string]QCell, len(rows))
	for k, v := range rows {
		t.rows[k] = v
	}
}

// basicUpdate applies the canonical tabular formula against whatever
// effective reward the caller has already computed.
func basicUpdate(cell QCell, effectiveReward, alpha float64, now int64) QCell {
	cell.QValue = cell.QValue + alpha*(effectiveReward-cell.QValue)
	cell.Visits++
	cell.LastUpdate = now
	return cell
}

// convergenceScore computes 1 - variance(last n)/variance(all), the
// monotonically-non-decreasing-on-a-stationary-stream metric the spec
// requires every algorithm to expose.
func convergenceScore(history []float64, n int) float64 {
	if len(history) == 0 {
		return 0
	}
	all := variance(history)
	if all == 0 {
		return 1
	}
	tail := history
	if len(history) > n {
		tail = history[len(history)-n:]
	}
	return 1 - variance(tail)/all
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var v float64
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return v / float64(len(xs))
}
