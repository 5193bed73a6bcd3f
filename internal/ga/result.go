package ga

import (
	"flexShop/internal/metrics"
	"flexShop/internal/opt"
)

func (r *run) result(gens int, stopped string) opt.Result {
	cfg := r.solver.Cfg
	r.solver.Metrics.ObserveRun(metrics.RunStats{
		Algo:        "ga",
		Evaluations: r.eval.Evaluations(),
		Iterations:  gens,
		Infeasible:  map[string]int{"crossover": r.infeasible},
		Best:        r.best.Makespan(),
	})
	return opt.Result{
		Solution:    r.best,
		Evaluations: r.eval.Evaluations(),
		Iterations:  gens,
		Duration:    r.stop.Elapsed(),
		Trace:       r.trace,
		Meta: map[string]any{
			"population": cfg.Population,
			"elite":      cfg.Elite,
			"selection":  string(cfg.Selection),
			"infeasible": r.infeasible,
			"fallbacks":  r.fallbacks,
			"stopped":    stopped,
		},
	}
}
