package ffmpegdecoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

const (
	inputDepth  = 8
	outputDepth = 4
	stderrTail  = 4096
)

// process is one generation of an ffmpeg child. Its channels are never
// shared with another generation, so output produced before a Reset cannot
// surface after it.
type process struct {
	cmd    *exec.Cmd
	in     chan []byte
	out    chan []byte
	done   chan struct{} // closed by kill
	exited chan struct{} // closed once Wait returned; err is set before
	err    error
	stderr *tailBuffer

	closeIn  sync.Once
	killOnce sync.Once
}

// startProcess launches ffmpeg with args. Output is cut into chunks of
// chunk bytes; a shorter final chunk is delivered when partial is set,
// trimmed to a multiple of align.
func startProcess(path string, args []string, chunk int, partial bool, align int) (*process, error) {
	p := &process{
		cmd:    exec.Command(path, args...),
		in:     make(chan []byte, inputDepth),
		out:    make(chan []byte, outputDepth),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		stderr: &tailBuffer{max: stderrTail},
	}
	p.cmd.Stderr = p.stderr

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	go p.write(stdin)
	go p.read(stdout, chunk, partial, align)
	return p, nil
}

func (p *process) write(stdin io.WriteCloser) {
	defer stdin.Close()
	for {
		select {
		case data, ok := <-p.in:
			if !ok {
				return
			}
			if _, err := stdin.Write(data); err != nil {
				// The reader reports the exit status.
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *process) read(stdout io.Reader, chunk int, partial bool, align int) {
	defer close(p.out)
	defer close(p.exited)

	for {
		buf := make([]byte, chunk)
		n, err := io.ReadFull(stdout, buf)
		if errors.Is(err, io.ErrUnexpectedEOF) && partial && align > 0 {
			n -= n % align
			err = nil
			if n == 0 {
				err = io.EOF
			}
		}
		if err != nil {
			break
		}
		select {
		case p.out <- buf[:n]:
		case <-p.done:
			p.err = p.cmd.Wait()
			return
		}
		if n < chunk {
			break
		}
	}

	if err := p.cmd.Wait(); err != nil {
		p.err = fmt.Errorf("%w: %w: %s", ErrProcessExited, err, p.stderr.String())
	}
}

// closeInput signals end of input; ffmpeg flushes and exits.
func (p *process) closeInput() {
	p.closeIn.Do(func() { close(p.in) })
}

// kill stops the process and waits for the reader to finish.
func (p *process) kill() {
	p.killOnce.Do(func() {
		close(p.done)
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	})
	<-p.exited
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(b)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(bytes.TrimSpace(t.buf.Bytes()))
}
