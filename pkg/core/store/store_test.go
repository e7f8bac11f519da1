package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"statement_analysis/pkg/core/extract"
	"statement_analysis/pkg/core/fraud"
	"statement_analysis/pkg/core/insight"
	"statement_analysis/pkg/core/pipeline"
	"statement_analysis/pkg/core/store"
	"statement_analysis/pkg/core/tamper"
)

// The repos are exercised against a live database; here we only pin the
// contract: one Store handle must satisfy every consumer interface.
var (
	_ pipeline.Store = (*store.Store)(nil)
	_ extract.Store  = (*store.Store)(nil)
	_ tamper.Store   = (*store.Store)(nil)
	_ fraud.Store    = (*store.Store)(nil)
	_ insight.Store  = (*store.Store)(nil)
)

func TestNewWiresEveryRepo(t *testing.T) {
	s := store.New()
	assert.NotNil(t, s.DocumentRepo)
	assert.NotNil(t, s.TransactionRepo)
	assert.NotNil(t, s.MetricsRepo)
	assert.NotNil(t, s.ResultRepo)
}
