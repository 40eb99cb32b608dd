package rl

// qLearningTable is the plain tabular baseline: effective reward is the
// observed reward itself.
type qLearningTable struct{ tableBase }

// NewQLearning returns the "q-learning" algorithm's table.
func NewQLearning() Table {
	return &qLearningTable{tableBase: newTableBase("q-learning")}
}

func (t *qLearningTable) Learn(key string, reward, alpha float64, now int64) QCell {
	cell := basicUpdate(t.get(key), reward, alpha, now)
	return t.set(key, cell)
}
