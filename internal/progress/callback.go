// Package progress provides progress reporting for long-running evolution and
// optimization runs.
package progress

// Callback reports coarse progress: current out of total items, plus a short
// description of the phase. A nil Callback is ignored by Call.
type Callback func(current, total int, message string)

// Call invokes cb if it is non-nil.
func Call(cb Callback, current, total int, message string) {
	if cb != nil {
		cb(current, total, message)
	}
}

// Update is a detailed progress update.
type Update struct {
	Phase   string             // e.g. "optimize", "evolve", "batch"
	RunID   string             // identifies the run that produced the update
	Current int                // items completed within the phase
	Total   int                // items in the phase
	Message string             // human-readable description
	Metrics map[string]float64 // e.g. loss, best_loss, learning_rate
}

// Fraction returns Current/Total, or 0 when Total is not positive.
func (u Update) Fraction() float64 {
	if u.Total <= 0 {
		return 0
	}
	return float64(u.Current) / float64(u.Total)
}

// DetailedCallback receives detailed updates. A nil DetailedCallback is
// ignored by CallDetailed.
type DetailedCallback func(update Update)

// CallDetailed invokes cb if it is non-nil.
func CallDetailed(cb DetailedCallback, update Update) {
	if cb != nil {
		cb(update)
	}
}
