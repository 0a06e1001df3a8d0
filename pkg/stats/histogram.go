package stats

// Packet length histogram buckets as exposed by the MMU. Bucket i counts
// packets with length in (bounds[i-1], bounds[i]]; the last bucket is
// open-ended.
var pktLenBounds = [NumPktLenBuckets]uint32{
	64, 127, 255, 511, 1023, 1518, 2047, 4095, 9216, 16383,
}

const NumPktLenBuckets = 10

// Histogram holds cumulative per-bucket packet counts.
type Histogram [NumPktLenBuckets]uint64

// BucketBound returns the inclusive upper bound of bucket i.
func BucketBound(i int) uint32 {
	return pktLenBounds[i]
}

// RollingAverage accumulates samples and reports their mean. It is used
// for queue lengths, which are point-in-time gauges rather than
// cumulative counters.
type RollingAverage struct {
	count uint64
	total uint64
}

func (r *RollingAverage) Add(sample uint64) {
	r.count++
	r.total += sample
}

func (r *RollingAverage) Value() float64 {
	if r.count == 0 {
		return 0
	}
	return float64(r.total) / float64(r.count)
}

func (r *RollingAverage) Reset() {
	r.count = 0
	r.total = 0
}
