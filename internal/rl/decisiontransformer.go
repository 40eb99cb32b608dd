package rl

// decisionTransformerTable conditions the update on a running
// return-to-go: the target the sequence model would have been conditioned
// on is the cumulative reward for the key averaged over its observed
// horizon, not the single-step reward.
type decisionTransformerTable struct {
	tableBase
	returnToGo map[string]float64
}

// NewDecisionTransformer returns the "decision-transformer" algorithm's table.
func NewDecisionTransformer() Table {
	return &decisionTransformerTable{
		tableBase:  newTableBase("decision-transformer"),
		returnToGo: make(map[string]float64),
	}
}

func (t *decisionTransformerTable) Learn(key string, reward, alpha float64, now int64) QCell {
	t.mu.Lock()
	t.returnToGo[key] += reward
	target := t.returnToGo[key]
	t.mu.Unlock()

	prior := t.get(key)
	conditioned := target / float64(prior.Visits+1)
	return t.set(key, basicUpdate(prior, conditioned, alpha, now))
}
