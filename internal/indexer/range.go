package indexer

import "fmt"

// BlockRange is an inclusive span of blocks covered by a single log
// query.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange cuts the inclusive range [from, to] into spans of at most
// batchSize blocks, keeping each eth_getLogs call within the node's
// response limits.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block %d precedes from block %d", to, from)
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	start := from
	for {
		end := start + batchSize - 1
		if end > to || end < start {
			end = to
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
		start = end + 1
	}
}
