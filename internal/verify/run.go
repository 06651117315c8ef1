package verify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/report"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/worker"
)

// Stats summarises a verification run.
type Stats struct {
	Total             int
	Correct           int
	Redirected        int
	RedirectedCorrect int
	LLMChecked        int
	LLMConfirmed      int
	LLMErrors         int
}

func (s Stats) Incorrect() int { return s.Total - s.Correct }

// Result is the verified dataset: the input rows with an is_correct column appended.
type Result struct {
	Rows  []*record.Record
	Stats Stats
}

// Runner runs coordinate verification and, when an Equivalence checker is configured,
// a second pass over rows that failed for lack of coordinates.
type Runner struct {
	coords *CoordVerifier
	llm    Equivalence
	opts   worker.Options
}

// NewRunner builds a runner. llm may be nil to skip the second pass.
func NewRunner(coords *CoordVerifier, llm Equivalence, opts worker.Options) *Runner {
	return &Runner{coords: coords, llm: llm, opts: opts}
}

func (r *Runner) Run(ctx context.Context, rows []*record.Record, rep *report.Report) (*Result, error) {
	res := &Result{Rows: make([]*record.Record, len(rows))}
	cands := make([]Candidate, len(rows))
	correct := make([]bool, len(rows))
	detail := make([]string, len(rows))

	for i, row := range rows {
		c := CandidateFromRecord(row)
		cands[i] = c
		correct[i] = r.coords.Verify(c)
		if !correct[i] {
			detail[i] = coordDetail(r.coords, c)
		}
	}

	if r.llm != nil {
		var pending []int
		for i, c := range cands {
			if NeedsLLM(c, correct[i]) {
				pending = append(pending, i)
			}
		}
		if len(pending) > 0 {
			fn := func(ctx context.Context, i int) (bool, error) {
				return r.llm.Equivalent(ctx, cands[i])
			}
			out, err := worker.MapFunc(ctx, pending, fn, r.opts)
			if err != nil {
				return nil, err
			}
			res.Stats.LLMChecked = len(out)
			for _, o := range out {
				switch {
				case o.Err != nil:
					res.Stats.LLMErrors++
					detail[o.Input] = fmt.Sprintf("llm error after %d attempt(s): %v", o.Attempts, o.Err)
				case o.Output:
					res.Stats.LLMConfirmed++
					correct[o.Input] = true
					detail[o.Input] = ""
				default:
					detail[o.Input] = "llm: not the same place"
				}
			}
		}
	}

	for i, row := range rows {
		out := row.Clone()
		out.Set(ColIsCorrect, record.Text(strconv.FormatBool(correct[i])))
		res.Rows[i] = out

		res.Stats.Total++
		if correct[i] {
			res.Stats.Correct++
		}
		if r.coords.Redirected(cands[i].InputName) {
			res.Stats.Redirected++
			if correct[i] {
				res.Stats.RedirectedCorrect++
			}
		}
		if !correct[i] && rep != nil {
			rep.Add(report.Entry{
				InputName: cands[i].InputName,
				Source:    "wiki",
				Reason:    report.ReasonVerifyFailed,
				Detail:    detail[i],
			})
		}
	}
	return res, nil
}

func coordDetail(v *CoordVerifier, c Candidate) string {
	ref, ok := v.refs[c.InputName]
	switch {
	case !ok:
		return "no reference coordinates"
	case !c.HasCoords:
		return "missing coordinates"
	default:
		return fmt.Sprintf("%.2f km from reference", HaversineKm(c.Lat, c.Lon, ref.lat, ref.lng))
	}
}
