package rl

// sarsaTable bootstraps off its own current estimate rather than the raw
// reward, approximating the on-policy TD target r + gamma*Q(s',a') without
// requiring a next-state lookahead: half observed reward, half existing
// estimate.
type sarsaTable struct{ tableBase }

// NewSarsa returns the "sarsa" algorithm's table.
func NewSarsa() Table {
	return &sarsaTable{tableBase: newTableBase("sarsa")}
}

func (t *sarsaTable) Learn(key string, reward, alpha float64, now int64) QCell {
	prior := t.get(key)
	bootstrapped := 0.5*reward + 0.5*prior.QValue
	return t.set(key, basicUpdate(prior, bootstrapped, alpha, now))
}
