package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		jobRunsTotal,
		purgedAccountsTotal,
	)
}

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Scheduled job runs by job name and outcome.",
		},
		[]string{"job", "outcome"},
	)

	purgedAccountsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "purged_accounts_total",
			Help: "Expired panel accounts removed by the cleanup job.",
		},
	)
)

func IncJobRun(job, outcome string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(outcome)).Inc()
}

func AddPurgedAccounts(n int) {
	if n > 0 {
		purgedAccountsTotal.Add(float64(n))
	}
}
