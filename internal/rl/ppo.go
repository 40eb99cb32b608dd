package rl

// ppoTable clips the step the update is allowed to take, approximating
// PPO's clipped surrogate objective: the effective reward can move the
// q-value by at most clipRange per call regardless of how large reward is.
type ppoTable struct {
	tableBase
	clipRange float64
}

// NewPPO returns the "ppo" algorithm's table.
func NewPPO() Table {
	return &ppoTable{tableBase: newTableBase("ppo"), clipRange: 0.2}
}

func (t *ppoTable) Learn(key string, reward, alpha float64, now int64) QCell {
	prior := t.get(key)
	delta := reward - prior.QValue
	if delta > t.clipRange {
		delta = t.clipRange
	} else if delta < -t.clipRange {
		delta = -t.clipRange
	}
	clipped := prior.QValue + delta
	return t.set(key, basicUpdate(prior, clipped, alpha, now))
}
