package tester

import (
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal/sqlexec"
)

var sqlFlows = map[string]sqlexec.Flow{
	"prepare-database-and-run-queries":            sqlexec.PrepareDatabaseAndRunQueries,
	"run-queries-and-check-database":              sqlexec.RunQueriesAndCheckDatabase,
	"run-skeleton-run-queries-and-check-database": sqlexec.RunSkeletonRunQueriesAndCheckDatabase,
}

// RegisterSQL registers the three SQL strategies for each provisioner that
// is not nil.
func (t *Tester) RegisterSQL(mysql sqlexec.Provisioner, sqlite sqlexec.Provisioner) {
	dialects := map[string]sqlexec.Provisioner{"mysql": mysql, "sqlite": sqlite}
	for dialect, prov := range dialects {
		if prov == nil {
			continue
		}
		for suffix, flow := range sqlFlows {
			kind, err := api.ParseExecutionStrategyType(dialect + "-" + suffix)
			if err != nil {
				panic(err)
			}
			logger := t.logger.With("component", "sqlexec", "strategy", kind.String())
			t.Register(kind, sqlexec.NewStrategy(prov, flow, logger))
		}
	}
}
