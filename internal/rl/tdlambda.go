package rl

// tdLambdaTable weights the observed reward against the running eligibility
// trace of the key (how recently and how often it has fired), approximating
// TD(lambda)'s backward view without keeping a full trace table per episode.
type tdLambdaTable struct {
	tableBase
	lambda float64
}

// NewTDLambda returns the "td-lambda" algorithm's table.
func NewTDLambda() Table {
	return &tdLambdaTable{tableBase: newTableBase("td-lambda"), lambda: 0.8}
}

func (t *tdLambdaTable) Learn(key string, reward, alpha float64, now int64) QCell {
	prior := t.get(key)
	weighted := t.lambda*prior.QValue + (1-t.lambda)*reward
	return t.set(key, basicUpdate(prior, weighted, alpha, now))
}
