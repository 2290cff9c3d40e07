package devices

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/binkynet/IOExpander/service/bridge"
)

// testBus is an in-memory bridge.I2CBus recording all writes and
// replaying scripted reads.
type testBus struct {
	mutex sync.Mutex
	// Every write transaction, in order
	writes [][]byte
	// Scripted responses for reads, consumed front to back.
	// When the script runs out the last returned response is repeated.
	reads    [][]byte
	lastRead []byte
	// Next write/read fails when set
	writeErr error
	readErr  error
	// When set, reads block until a value is received
	readGate chan struct{}
}

func newTestBus() *testBus {
	return &testBus{}
}

func (b *testBus) Close() error {
	return nil
}

func (b *testBus) WriteBytes(addr byte, data []byte) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.writeErr != nil {
		err := b.writeErr
		b.writeErr = nil
		return err
	}
	w := make([]byte, len(data))
	copy(w, data)
	b.writes = append(b.writes, w)
	return nil
}

func (b *testBus) ReadBytes(addr byte, count int) ([]byte, error) {
	b.mutex.Lock()
	gate := b.readGate
	b.mutex.Unlock()
	if gate != nil {
		<-gate
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.readErr != nil {
		err := b.readErr
		b.readErr = nil
		return nil, err
	}
	var data []byte
	if len(b.reads) > 0 {
		data = b.reads[0]
		b.reads = b.reads[1:]
		b.lastRead = data
	} else if b.lastRead != nil {
		data = b.lastRead
	} else {
		return nil, errors.New("no scripted read")
	}
	if len(data) != count {
		return nil, errors.Errorf("scripted read has %d bytes, %d requested", len(data), count)
	}
	result := make([]byte, count)
	copy(result, data)
	return result, nil
}

func (b *testBus) DetectSlaveAddresses() []byte {
	return nil
}

func (b *testBus) scriptRead(data ...byte) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.reads = append(b.reads, data)
}

func (b *testBus) lastWrite() []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if len(b.writes) == 0 {
		return nil
	}
	return b.writes[len(b.writes)-1]
}

func (b *testBus) writeCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.writes)
}

// testIntrProvider is an in-memory bridge.InterruptProvider that
// counts acquired lines and lets tests fire edges by hand.
type testIntrProvider struct {
	mutex    sync.Mutex
	acquired map[uint]*testIntrLine
	// Total number of AcquireLine calls
	acquireCount int
}

func newTestIntrProvider() *testIntrProvider {
	return &testIntrProvider{
		acquired: make(map[uint]*testIntrLine),
	}
}

func (p *testIntrProvider) AcquireLine(line uint) (bridge.InterruptLine, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	l := &testIntrLine{provider: p, line: line}
	p.acquired[line] = l
	p.acquireCount++
	return l, nil
}

func (p *testIntrProvider) lineByID(line uint) *testIntrLine {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.acquired[line]
}

type testIntrLine struct {
	provider *testIntrProvider
	line     uint
	mutex    sync.Mutex
	handler  func()
	released bool
}

func (l *testIntrLine) Watch(handler func()) (func(), error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.handler != nil {
		return nil, errors.New("line is already being watched")
	}
	l.handler = handler
	return func() {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		l.handler = nil
	}, nil
}

func (l *testIntrLine) Release() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.released = true
	l.provider.mutex.Lock()
	delete(l.provider.acquired, l.line)
	l.provider.mutex.Unlock()
	return nil
}

// fire simulates a falling edge on the line.
func (l *testIntrLine) fire() {
	l.mutex.Lock()
	handler := l.handler
	l.mutex.Unlock()
	if handler != nil {
		handler()
	}
}
