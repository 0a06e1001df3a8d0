package bcm

import (
	"log/slog"
	"sync"

	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

// QueueManager programs and samples egress queues for the unit. Each
// port gets a PortQueues view created once and kept for the life of the
// controller.
type QueueManager struct {
	unit   sdk.Unit
	plat   platform.Platform
	logger *slog.Logger
}

func NewQueueManager(unit sdk.Unit, plat platform.Platform) *QueueManager {
	return &QueueManager{unit: unit, plat: plat}
}

func (m *QueueManager) ForPort(id ports.PortID) *PortQueues {
	return &PortQueues{mgr: m, id: id}
}

// PortQueues is the per-port queue view.
type PortQueues struct {
	mgr *QueueManager
	id  ports.PortID

	mu   sync.Mutex
	name string
}

// SetPortName records the name queue statistics are exported under.
func (q *PortQueues) SetPortName(name string) {
	q.mu.Lock()
	q.name = name
	q.mu.Unlock()
}

// NumQueues reports how many egress queues the port has for the stream.
func (q *PortQueues) NumQueues(stream ports.StreamType) (int, error) {
	n, err := q.mgr.unit.PortQueueCountGet(q.id, stream)
	return n, southbound.CheckSDK(err, "read queue count", q.id)
}

// CreateQueues programs the desired per-queue settings. With no explicit
// settings the platform defaults are used; platforms shipping none leave
// the hardware layout alone.
func (q *PortQueues) CreateQueues(desired []ports.QueueSettings) error {
	settings := desired
	if len(settings) == 0 {
		settings = append(settings, q.mgr.plat.DefaultQueues(ports.StreamUnicast)...)
		settings = append(settings, q.mgr.plat.DefaultQueues(ports.StreamMulticast)...)
	}
	for _, s := range settings {
		n, err := q.NumQueues(s.Stream)
		if err != nil {
			return err
		}
		if s.ID < 0 || s.ID >= n {
			return southbound.Unsupportedf("port %d: %v queue %d out of range, hardware has %d", q.id, s.Stream, s.ID, n)
		}
		if err := southbound.CheckSDK(q.mgr.unit.PortQueueSet(q.id, s), "program queue", q.id); err != nil {
			return err
		}
	}
	return nil
}

// TotalLength samples the instantaneous depth across the port's unicast
// queues.
func (q *PortQueues) TotalLength() (uint64, error) {
	n, err := q.NumQueues(ports.StreamUnicast)
	if err != nil {
		return 0, err
	}
	var total uint64
	for i := 0; i < n; i++ {
		depth, err := q.mgr.unit.QueueLengthGet(q.id, i)
		if err != nil {
			return 0, southbound.CheckSDK(err, "read queue length", q.id)
		}
		total += depth
	}
	return total, nil
}
