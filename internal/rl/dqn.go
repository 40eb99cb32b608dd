package rl

// dqnTable batches rewards per key and only applies the update once a
// mini-batch fills, approximating DQN's batched target-network difference
// instead of updating on every single observation.
type dqnTable struct {
	tableBase
	batchSize int
	pending   map[string][]float64
}

// NewDQN returns the "dqn" algorithm's table.
func NewDQN() Table {
	return &dqnTable{
		tableBase: newTableBase("dqn"),
		batchSize: 4,
		pending:   make(map[string][]float64),
	}
}

func (t *dqnTable) Learn(key string, reward, alpha float64, now int64) QCell {
	t.mu.Lock()
	t.pending[key] = append(t.pending[key], reward)
	batch := t.pending[key]
	flush := len(batch) >= t.batchSize
	if flush {
		delete(t.pending, key)
	}
	t.mu.Unlock()

	if !flush {
		return t.get(key)
	}

	var sum float64
	for _, r := range batch {
		sum += r
	}
	target := sum / float64(len(batch))
	return t.set(key, basicUpdate(t.get(key), target, alpha, now))
}
