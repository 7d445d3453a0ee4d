package mqtt

// bufferedMsg is a publish held back while the broker is unreachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog keeps the most recent publishes made while disconnected. Once full,
// each push evicts the oldest entry. RealPublisher guards it with its mutex.
type backlog struct {
	slots   []bufferedMsg
	next    int
	size    int
	dropped int
}

func newBacklog(capacity int) *backlog {
	return &backlog{slots: make([]bufferedMsg, capacity)}
}

func (b *backlog) push(msg bufferedMsg) {
	b.slots[b.next] = msg
	b.next = (b.next + 1) % len(b.slots)
	if b.size == len(b.slots) {
		b.dropped++
		return
	}
	b.size++
}

// drain returns the held messages oldest first together with the number
// evicted since the previous drain, and empties the backlog.
func (b *backlog) drain() ([]bufferedMsg, int) {
	dropped := b.dropped
	if b.size == 0 {
		b.dropped = 0
		return nil, dropped
	}

	out := make([]bufferedMsg, 0, b.size)
	first := (b.next - b.size + len(b.slots)) % len(b.slots)
	for i := 0; i < b.size; i++ {
		out = append(out, b.slots[(first+i)%len(b.slots)])
	}

	b.next, b.size, b.dropped = 0, 0, 0
	return out, dropped
}

func (b *backlog) len() int {
	return b.size
}
