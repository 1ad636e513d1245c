package accessibility

// slotPool hands out the worker-slot ids that Oracle calls require. A
// buffered channel of ids doubles as the semaphore: at most n queries hold
// scratch state at any moment, and no two hold the same slot.
type slotPool struct {
	ch chan int
}

func newSlotPool(n int) *slotPool {
	p := &slotPool{ch: make(chan int, n)}
	for i := 0; i < n; i++ {
		p.ch <- i
	}
	return p
}

func (p *slotPool) acquire() int {
	return <-p.ch
}

func (p *slotPool) release(slot int) {
	p.ch <- slot
}
