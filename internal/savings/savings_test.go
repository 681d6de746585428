package savings

import (
	"testing"

	"budgettracker/internal/core"
)

func goal(current, target int64) core.SavingsGoal {
	return core.SavingsGoal{Title: "Goal", Current: core.Money{Cents: current}, Target: core.Money{Cents: target}}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		name            string
		current, target int64
		want            float64
	}{
		{"half", 50000, 100000, 50},
		{"nothing saved", 0, 100000, 0},
		{"one third", 100, 300, 33.3},
		{"two thirds", 200, 300, 66.7},
		{"exceeded", 150000, 100000, 150},
		{"zero target", 500, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Progress(goal(tc.current, tc.target)); got != tc.want {
				t.Errorf("Progress = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSummarizeAndOverall(t *testing.T) {
	totals := Summarize([]core.SavingsGoal{goal(25000, 100000), goal(50000, 50000)})
	if totals.Target.Cents != 150000 || totals.Current.Cents != 75000 || totals.Count != 2 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if got := Overall(totals); got != 50 {
		t.Errorf("Overall = %v, want 50", got)
	}
	if got := Overall(Summarize(nil)); got != 0 {
		t.Errorf("Overall of no goals = %v, want 0", got)
	}
}
