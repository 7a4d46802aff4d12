package hal

import "sync"

// IRQ identifies an interrupt line of the machine.
type IRQ uint8

const (
	IRQSysTick IRQ = iota + 1
)

func (i IRQ) String() string {
	switch i {
	case IRQSysTick:
		return "systick"
	default:
		return "unknown"
	}
}

const irqSlots = 64

// irqQueue holds interrupt requests raised by device goroutines until the
// processor takes them. It is a fixed-size multi-producer, single-consumer
// ring. A full ring drops the request: a line that is already pending many
// times over is still just pending.
type irqQueue struct {
	_      [0]func() // prevent accidental copying.
	mu     sync.Mutex
	head   uint32
	tail   uint32
	slots  [irqSlots]IRQ
	notify chan struct{}
}

func newIRQQueue() *irqQueue {
	return &irqQueue{notify: make(chan struct{}, 1)}
}

// TrySend enqueues a request, returning false if the ring is full.
func (q *irqQueue) TrySend(irq IRQ) bool {
	q.mu.Lock()
	if q.head-q.tail >= irqSlots {
		q.mu.Unlock()
		return false
	}
	q.slots[q.head%irqSlots] = irq
	q.head++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// TryRecv dequeues one request, returning false if none is pending.
func (q *irqQueue) TryRecv() (IRQ, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail == q.head {
		return 0, false
	}
	irq := q.slots[q.tail%irqSlots]
	q.tail++
	return irq, true
}

// Recv blocks until one request is available.
func (q *irqQueue) Recv() IRQ {
	for {
		if irq, ok := q.TryRecv(); ok {
			return irq
		}
		<-q.notify
	}
}

// Pending returns the number of queued requests.
func (q *irqQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.head - q.tail)
}
