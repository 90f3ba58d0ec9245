package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chitieu/internal/analysis"
	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
	"chitieu/internal/metrics"
)

// analysisTimeout bounds one generator call. It is detached from the
// request so a caller leaving does not cancel a shared call.
const analysisTimeout = 30 * time.Second

type analysisResponse struct {
	analysis.Result
	Cached bool `json:"cached"`
}

// handleAnalysis comments on the target's spending. Results for an
// unchanged summary come from the cache; concurrent requests for the same
// summary share one call.
func (s *Server) handleAnalysis(resolve targetResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := resolve(r)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		expenses, err := s.store.Expenses(t)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		summary := core.Summarize(expenses)
		key := analysisKey(t, summary)

		if res, ok := s.analysisCache.Get(key); ok {
			metrics.Analysis.WithLabelValues("cached").Inc()
			NewJSONResponse().JSON(analysisResponse{Result: res, Cached: true}).Write(w)
			return
		}

		v, _, shared := s.analyzeGroup.Do(key, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), analysisTimeout)
			defer cancel()
			res := s.analysis.Analyze(ctx, expenses, summary.Total)
			if !res.Fallback {
				s.analysisCache.Set(key, res)
			}
			return res, nil
		})
		res := v.(analysis.Result)
		log.FromContext(r.Context()).DebugContext(r.Context(), "Analysis served",
			log.FieldOperation, log.OpAnalyze,
			log.FieldTarget, t.String(),
			"fallback", res.Fallback,
			"shared", shared)
		NewJSONResponse().JSON(analysisResponse{Result: res}).Write(w)
	}
}

// analysisKey identifies a target's spending by its aggregate, which is
// all the generator sees.
func analysisKey(t ledger.Target, s core.Summary) string {
	var b strings.Builder
	b.WriteString(t.String())
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(s.Total.Dong(), 10))
	for _, ca := range s.ByCategory {
		b.WriteByte('|')
		b.WriteString(string(ca.Category))
		b.WriteByte('=')
		b.WriteString(strconv.FormatInt(ca.Amount.Dong(), 10))
	}
	return b.String()
}
