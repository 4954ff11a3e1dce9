package state

// Due reports whether interval seconds have elapsed since last. A zero last
// timestamp means "never happened" and is always due. The boundary is
// inclusive: elapsed == interval is due. Rotation and reporting share this
// rule against their respective timestamps.
func Due(now, last, interval int64) bool {
	if last == 0 {
		return true
	}
	return now-last >= interval
}
