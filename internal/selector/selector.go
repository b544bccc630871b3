// Package selector picks the winning trial from a set of records.
//
// Records are totally ordered: a record that fits the target beats one that
// does not, then the higher score wins, then the earlier trial. Failed
// trials never win.
package selector

import "github.com/five82/gifsizer/internal/trial"

// Fits reports whether rec succeeded and its size is within target.
// With no target every successful record fits.
func Fits(rec trial.Record, target *int64) bool {
	if !rec.OK() {
		return false
	}
	return target == nil || rec.Outcome.SizeBytes <= *target
}

// Better reports whether a should be preferred over b.
func Better(a, b trial.Record, target *int64) bool {
	if a.OK() != b.OK() {
		return a.OK()
	}
	if fa, fb := Fits(a, target), Fits(b, target); fa != fb {
		return fa
	}
	if a.Outcome.Score != b.Outcome.Score {
		return a.Outcome.Score > b.Outcome.Score
	}
	return a.Seq < b.Seq
}

// Select returns the preferred record, or nil if records is empty or every
// record failed. The result may not fit the target; check with Fits.
func Select(records []trial.Record, target *int64) *trial.Record {
	var best *trial.Record
	for i := range records {
		if !records[i].OK() {
			continue
		}
		if best == nil || Better(records[i], *best, target) {
			best = &records[i]
		}
	}
	return best
}

// Smallest returns the successful record with the lowest output size,
// breaking ties by earlier trial.
func Smallest(records []trial.Record) *trial.Record {
	var best *trial.Record
	for i := range records {
		r := &records[i]
		if !r.OK() {
			continue
		}
		if best == nil ||
			r.Outcome.SizeBytes < best.Outcome.SizeBytes ||
			(r.Outcome.SizeBytes == best.Outcome.SizeBytes && r.Seq < best.Seq) {
			best = r
		}
	}
	return best
}
