package serialmux

import (
	"bytes"
	"errors"
	"strings"
	"sync"
)

// errPortClosed is returned by TestableSerialPort after Close.
var errPortClosed = errors.New("serial port closed")

// TestableSerialPort stands in for the gate controller board. Writes are
// captured; reads drain data queued with AddReadData. With Ack set, every
// complete command line written is answered with "ACK <command>".
type TestableSerialPort struct {
	mu   sync.Mutex
	cond *sync.Cond

	read    bytes.Buffer
	written bytes.Buffer

	// Ack makes the port answer each command line.
	Ack bool
	// BlockReads makes Read wait for data instead of returning io.EOF.
	BlockReads bool

	// ReadError and WriteError fail the next call once.
	ReadError  error
	WriteError error

	Closed     bool
	WriteCalls int
}

// NewTestableSerialPort returns an open port with no queued data.
func NewTestableSerialPort() *TestableSerialPort {
	p := &TestableSerialPort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *TestableSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ReadError != nil {
		err := p.ReadError
		p.ReadError = nil
		return 0, err
	}
	for p.BlockReads && !p.Closed && p.read.Len() == 0 {
		p.cond.Wait()
	}
	if p.Closed {
		return 0, errPortClosed
	}
	return p.read.Read(b)
}

func (p *TestableSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.WriteCalls++
	if p.Closed {
		return 0, errPortClosed
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}

	start := p.written.Len()
	n, _ := p.written.Write(b)
	if p.Ack {
		p.ackLines(start)
	}
	return n, nil
}

// ackLines answers every command line completed by the write that began at
// offset start.
func (p *TestableSerialPort) ackLines(start int) {
	data := p.written.Bytes()
	lineStart := bytes.LastIndexByte(data[:start], '\n') + 1
	for _, line := range strings.SplitAfter(string(data[lineStart:]), "\n") {
		if strings.HasSuffix(line, "\n") {
			p.read.WriteString("ACK " + line)
		}
	}
	p.cond.Broadcast()
}

func (p *TestableSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	p.cond.Broadcast()
	return nil
}

// AddReadData queues data for Read.
func (p *TestableSerialPort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.read.Write(data)
	p.cond.Broadcast()
}

// GetWrittenData returns a copy of everything written so far.
func (p *TestableSerialPort) GetWrittenData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.written.Bytes())
}

// Commands returns the complete command lines written so far.
func (p *TestableSerialPort) Commands() []string {
	var out []string
	for _, line := range strings.SplitAfter(string(p.GetWrittenData()), "\n") {
		if strings.HasSuffix(line, "\n") {
			out = append(out, strings.TrimSuffix(line, "\n"))
		}
	}
	return out
}

// Reset reopens the port and drops all buffered data.
func (p *TestableSerialPort) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.read.Reset()
	p.written.Reset()
	p.Closed = false
	p.WriteCalls = 0
	p.ReadError = nil
	p.WriteError = nil
}

// MockSerialPortFactory records Open calls and hands out a fixed port. Its
// Open method satisfies PortOpener.
type MockSerialPortFactory struct {
	mu sync.Mutex

	Port  SerialPorter
	Error error

	OpenCalls []MockOpenCall
}

// MockOpenCall records the arguments of one Open call.
type MockOpenCall struct {
	Path    string
	Options PortOptions
}

// NewMockSerialPortFactory returns a factory that opens port.
func NewMockSerialPortFactory(port SerialPorter) *MockSerialPortFactory {
	return &MockSerialPortFactory{Port: port}
}

// Open records the call and returns the configured port or error.
func (f *MockSerialPortFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OpenCalls = append(f.OpenCalls, MockOpenCall{Path: path, Options: opts})
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Port, nil
}

// LastCall returns the most recent Open call, or nil if none.
func (f *MockSerialPortFactory) LastCall() *MockOpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.OpenCalls) == 0 {
		return nil
	}
	return &f.OpenCalls[len(f.OpenCalls)-1]
}
