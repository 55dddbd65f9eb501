package vecmmr

import "github.com/hupe1980/vecmmr/model"

// Result is a single output row: the row id and its distance to the query.
type Result = model.Result

// materialize copies row ids and distances in upstream order. After MMR the
// order is the selection order, which is not re-sorted by distance.
func materialize(cands []model.Candidate) []Result {
	out := make([]Result, len(cands))
	for i, c := range cands {
		out[i] = Result{RowID: c.RowID, Distance: c.Distance}
	}
	return out
}
