package rl

// actorCriticTable tracks a value-function baseline per key and feeds the
// advantage (reward minus baseline) through the canonical update, standing
// in for the critic's value estimate without a separate policy network.
type actorCriticTable struct {
	tableBase
	baseline map[string]float64
}

// NewActorCritic returns the "actor-critic" algorithm's table.
func NewActorCritic() Table {
	return &actorCriticTable{
		tableBase: newTableBase("actor-critic"),
		baseline:  make(map[string]float64),
	}
}

func (t *actorCriticTable) Learn(key string, reward, alpha float64, now int64) QCell {
	t.mu.Lock()
	baseline := t.baseline[key]
	advantage := reward - baseline
	t.baseline[key] = baseline + alpha*advantage
	t.mu.Unlock()

	return t.set(key, basicUpdate(t.get(key), advantage, alpha, now))
}
