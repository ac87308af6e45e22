package eap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// ErrClosed is returned by calls on an engine after Close.
var ErrClosed = errors.New("eap: engine is closed")

// Engine is a client for one engine session. It owns the subprocess when
// created with NewEngine.
type Engine struct {
	path string
	args []string

	// MoveTime is sent with every go command, in milliseconds.
	MoveTime int

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	readErr error
	exited  chan struct{}

	mu     sync.Mutex
	closed bool

	// Populated by Init.
	ID      EngineID
	Options []EngineOption
}

// NewEngine returns a client for the engine binary at path. The process is
// started by Init.
func NewEngine(path string, args ...string) *Engine {
	return &Engine{path: path, args: args}
}

// Attach returns a client speaking over an existing pair of pipes, such as
// an engine served in-process.
func Attach(stdout io.Reader, stdin io.WriteCloser) *Engine {
	e := &Engine{stdin: stdin}
	e.readFrom(stdout)
	return e
}

// Init starts the engine if needed and performs the handshake.
func (e *Engine) Init(ctx context.Context) error {
	if e.lines == nil {
		if err := e.start(); err != nil {
			return fmt.Errorf("eap: start engine: %w", err)
		}
	}
	if err := e.handshake(ctx); err != nil {
		e.Close()
		return fmt.Errorf("eap: handshake: %w", err)
	}
	return nil
}

func (e *Engine) start() error {
	e.cmd = exec.Command(e.path, e.args...)
	var err error
	if e.stdin, err = e.cmd.StdinPipe(); err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}
	e.readFrom(stdout)
	return nil
}

// readFrom starts the single goroutine that reads engine output. The lines
// channel is closed when output ends.
func (e *Engine) readFrom(r io.Reader) {
	e.lines = make(chan string, 64)
	e.exited = make(chan struct{})
	go func() {
		defer close(e.exited)
		defer close(e.lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for sc.Scan() {
			e.lines <- sc.Text()
		}
		e.readErr = sc.Err()
		if e.cmd != nil {
			e.cmd.Wait()
		}
	}()
}

func (e *Engine) handshake(ctx context.Context) error {
	if err := e.send("eap"); err != nil {
		return err
	}
	for {
		line, err := e.next(ctx)
		if err != nil {
			return fmt.Errorf("waiting for eapok: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "id name "):
			e.ID.Name = strings.TrimPrefix(line, "id name ")
		case strings.HasPrefix(line, "id author "):
			e.ID.Author = strings.TrimPrefix(line, "id author ")
		case strings.HasPrefix(line, "protocol_version "):
			fmt.Sscanf(strings.TrimPrefix(line, "protocol_version "), "%d", &e.ID.ProtocolVersion)
		case strings.HasPrefix(line, "option "):
			e.Options = append(e.Options, parseEngineOption(line))
		case line == "eapok":
			return e.IsReady(ctx)
		}
	}
}

// SetOption sends a setoption command.
func (e *Engine) SetOption(name, value string) error {
	return e.send(fmt.Sprintf("setoption name %s value %s", name, value))
}

// IsReady sends isready and waits for readyok.
func (e *Engine) IsReady(ctx context.Context) error {
	if err := e.send("isready"); err != nil {
		return err
	}
	return e.readUntil(ctx, "readyok")
}

// NewGame tells the engine that the next position starts a new game.
func (e *Engine) NewGame() error { return e.send("newgame") }

// SetPosition sends the position to search from.
func (e *Engine) SetPosition(gs *campaign.GameState) error {
	arg, err := EncodePosition(gs)
	if err != nil {
		return err
	}
	return e.send("position " + arg)
}

// BestAction starts a search and waits for bestaction. If ctx ends first,
// stop is sent and the engine gets two seconds to answer.
func (e *Engine) BestAction(ctx context.Context) (*SearchResults, error) {
	cmd := "go"
	if s := (GoParams{MoveTime: e.MoveTime}).String(); s != "" {
		cmd += " " + s
	}
	if err := e.send(cmd); err != nil {
		return nil, err
	}

	sr := &SearchResults{}
	stopped := false
	var grace <-chan time.Time
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				return nil, e.eofError("bestaction")
			}
			switch {
			case strings.HasPrefix(line, "info "):
				sr.Infos = append(sr.Infos, parseInfo(line))
			case strings.HasPrefix(line, "bestaction "):
				sr.Notation = strings.TrimPrefix(line, "bestaction ")
				a, err := campaign.ParseAction(sr.Notation)
				if err != nil {
					return nil, fmt.Errorf("eap: engine sent %q: %w", sr.Notation, err)
				}
				sr.Action = a
				return sr, nil
			}
		case <-ctx.Done():
			if stopped {
				continue
			}
			stopped = true
			e.send("stop")
			grace = time.After(2 * time.Second)
			ctx = context.Background()
		case <-grace:
			return nil, fmt.Errorf("eap: engine did not answer stop within 2s")
		}
	}
}

// Close sends quit and waits up to three seconds for the engine to exit
// before killing it.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	if e.stdin != nil {
		fmt.Fprintln(e.stdin, "quit")
		e.stdin.Close()
	}
	e.closed = true
	e.mu.Unlock()

	if e.exited == nil {
		return nil
	}
	select {
	case <-e.exited:
	case <-time.After(3 * time.Second):
		log.Warn().Str("engine", e.ID.Name).Msg("Engine did not exit within 3s, killing")
		if e.cmd != nil && e.cmd.Process != nil {
			e.cmd.Process.Kill()
		}
	}
	return nil
}

func (e *Engine) send(line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.stdin == nil {
		return ErrClosed
	}
	if _, err := fmt.Fprintln(e.stdin, line); err != nil {
		return fmt.Errorf("eap: write: %w", err)
	}
	return nil
}

func (e *Engine) next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-e.lines:
		if !ok {
			return "", e.eofError("more output")
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *Engine) readUntil(ctx context.Context, want string) error {
	for {
		line, err := e.next(ctx)
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", want, err)
		}
		if line == want {
			return nil
		}
	}
}

func (e *Engine) eofError(want string) error {
	if e.readErr != nil {
		return fmt.Errorf("eap: read: %w", e.readErr)
	}
	return fmt.Errorf("eap: engine closed its output before %s", want)
}
