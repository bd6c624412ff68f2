package probe

import "github.com/MOYARU/crawlprobe/internal/engine"

// Differs compares two responses by status and body length. A status change
// always counts. An empty body on either side never does, since there is no
// length to compare. Otherwise the length delta is taken relative to the
// shorter body: 100 vs 111 bytes is 0.11.
func Differs(a, b *engine.Snapshot, threshold float64) (bool, float64) {
	if a == nil || b == nil {
		return false, 0
	}
	la, lb := len(a.Body), len(b.Body)
	delta := lengthDelta(la, lb)
	if a.Status != b.Status {
		return true, delta
	}
	if la == 0 || lb == 0 {
		return false, 0
	}
	return delta > threshold, delta
}

func lengthDelta(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	diff, lo := a-b, a
	if diff < 0 {
		diff = -diff
	}
	if b < lo {
		lo = b
	}
	return float64(diff) / float64(lo)
}
