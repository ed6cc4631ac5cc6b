package relay

import "fmt"

// SeqRange is an inclusive range of log sequence numbers.
type SeqRange struct {
	From uint64
	To   uint64
}

// SplitRange splits [from, to] into batches of at most batchSize entries.
func SplitRange(from, to, batchSize uint64) ([]SeqRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to seq must be >= from seq")
	}

	ranges := make([]SeqRange, 0, (to-from)/batchSize+1)
	start := from
	for {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, SeqRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges, nil
}
