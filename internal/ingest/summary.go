package ingest

// Summary reports what an ingestion run actually consumed. Skipped rows
// are counted by reason so silent data loss stays observable in logs and
// tests instead of disappearing inside parse loops.
type Summary struct {
	FilesMatched int
	FilesRead    int
	FilesSkipped int
	RowsRead     int
	RowsSkipped  int
	SkipReasons  map[string]int
}

// NoData reports whether the run found nothing to consume: no matching
// files or only unreadable ones. Downstream callers use this to
// distinguish "zero rows matched" from a crash.
func (s *Summary) NoData() bool {
	return s.FilesRead == 0
}

func (s *Summary) skipRow(reason string) {
	s.RowsSkipped++
	if s.SkipReasons == nil {
		s.SkipReasons = make(map[string]int)
	}
	s.SkipReasons[reason]++
}

func (s *Summary) merge(other Summary) {
	s.FilesMatched += other.FilesMatched
	s.FilesRead += other.FilesRead
	s.FilesSkipped += other.FilesSkipped
	s.RowsRead += other.RowsRead
	s.RowsSkipped += other.RowsSkipped
	for reason, n := range other.SkipReasons {
		if s.SkipReasons == nil {
			s.SkipReasons = make(map[string]int)
		}
		s.SkipReasons[reason] += n
	}
}
