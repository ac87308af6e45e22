package eap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// SearchFunc chooses an action for a position. It should return promptly
// once ctx is done.
type SearchFunc func(ctx context.Context, gs *campaign.GameState, p GoParams) (campaign.Action, error)

// Server answers the protocol on behalf of an in-process search function.
type Server struct {
	Name   string
	Author string
	Search SearchFunc
}

// Serve reads commands from in and writes replies to out until quit, end
// of input, or ctx is done. Searches run synchronously and are bounded by
// the movetime of the go command.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	w := bufio.NewWriter(out)
	reply := func(format string, args ...any) error {
		fmt.Fprintf(w, format+"\n", args...)
		return w.Flush()
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var pos *campaign.GameState
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		var err error
		switch cmd {
		case "eap":
			fmt.Fprintf(w, "id name %s\n", s.Name)
			fmt.Fprintf(w, "id author %s\n", s.Author)
			fmt.Fprintf(w, "protocol_version %d\n", ProtocolVersion)
			err = reply("eapok")
		case "isready":
			err = reply("readyok")
		case "newgame":
			pos = nil
		case "position":
			if pos, err = DecodePosition(arg); err != nil {
				err = reply("info string %v", err)
			}
		case "go":
			err = s.search(ctx, pos, parseGoParams(strings.Fields(arg)), reply)
		case "quit":
			return nil
		}
		if err != nil {
			return err
		}
	}
	return sc.Err()
}

func (s *Server) search(ctx context.Context, pos *campaign.GameState, p GoParams, reply func(string, ...any) error) error {
	// Without a usable answer the engine still replies, with an undo that
	// the client treats as a failed search.
	giveUp := func(reason any) error {
		if err := reply("info string %v", reason); err != nil {
			return err
		}
		return reply("bestaction undo")
	}
	if pos == nil {
		return giveUp("no position")
	}
	if p.MoveTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.MoveTime)*time.Millisecond)
		defer cancel()
	}
	start := time.Now()
	a, err := s.Search(ctx, pos, p)
	if err != nil {
		return giveUp(err)
	}
	if err := reply("info depth 1 time %d", time.Since(start).Milliseconds()); err != nil {
		return err
	}
	return reply("bestaction %s", campaign.FormatAction(a))
}
