// Package savings computes progress toward savings goals.
package savings

import "budgettracker/internal/core"

// Progress returns current/target*100 rounded to one decimal, or 0 when
// the target is not positive.
func Progress(g core.SavingsGoal) float64 {
	return core.Percent(g.Current, g.Target, 1)
}

// Overall is the aggregate progress across a set of goals.
func Overall(t core.SavingsTotals) float64 {
	return core.Percent(t.Current, t.Target, 1)
}

// Summarize totals target and current amounts of goals.
func Summarize(goals []core.SavingsGoal) core.SavingsTotals {
	var t core.SavingsTotals
	for _, g := range goals {
		t.Target = t.Target.Add(g.Target)
		t.Current = t.Current.Add(g.Current)
		t.Count++
	}
	return t
}
