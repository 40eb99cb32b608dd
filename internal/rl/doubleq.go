package rl

import "sync"

// doubleQTable alternates which of two shadow tables records a call's
// visit, but keeps both tables' q-values mirrored to the same canonical
// chain, so the reported q-value always follows the plain
// q_new = q_old + alpha*(reward-q_old) trace regardless of which shadow
// is primary this call. Visits stay split across the two tables.
type doubleQTable struct {
	name string
	mu   sync.Mutex
	a, b tableBase
	flip bool
}

// NewDoubleQ returns the "double-q" algorithm's table.
func NewDoubleQ() Table {
	return &doubleQTable{
		name: "double-q",
		a:    newTableBase("double-q-a"),
		b:    newTableBase("double-q-b"),
	}
}

func (t *doubleQTable) Name() string { return t.name }

func (t *doubleQTable) Learn(key string, reward, alpha float64, now int64) QCell {
	t.mu.Lock()
	useA := t.flip
	t.flip = !t.flip
	t.mu.Unlock()

	primary, mirror := &t.b, &t.a
	if useA {
		primary, mirror = &t.a, &t.b
	}

	updated := basicUpdate(primary.get(key), reward, alpha, now)
	primary.set(key, updated)

	mirrorCell := mirror.get(key)
	mirrorCell.QValue, mirrorCell.LastUpdate = updated.QValue, updated.LastUpdate
	mirror.set(key, mirrorCell)

	return QCell{
		QValue:     updated.QValue,
		Visits:     primary.get(key).Visits + mirror.get(key).Visits,
		LastUpdate: now,
	}
}

func (t *doubleQTable) Snapshot() map[string]QCell {
	out := make(map[string]QCell)
	for k, v := range t.a.Snapshot() {
		out["a:"+k] = v
	}
	for k, v := range t.b.Snapshot() {
		out["b:"+k] = v
	}
	return out
}

func (t *doubleQTable) Restore(rows map[string]QCell) {
	aRows := make(map[string]QCell)
	bRows := make(map[string]QCell)
	for k, v := range rows {
		if len(k) > 2 && k[:2] == "a:" {
			aRows[k[2:]] = v
		} else if len(k) > 2 && k[:2] == "b:" {
			bRows[k[2:]] = v
		}
	}
	t.a.Restore(aRows)
	t.b.Restore(bRows)
}
