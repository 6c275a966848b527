// Package interactive provides the interactive command-line interface
// for htp1ctl.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/htp1-protocol/htp1-go/pkg/htp1"
	"github.com/htp1-protocol/htp1-go/pkg/subscription"
)

// Session handles interactive mode for htp1ctl.
type Session struct {
	client *htp1.Client
	rl     *readline.Instance

	// Active watch subscriptions, keyed by state path.
	watches map[string]*subscription.Subscription
}

// New creates a new interactive session for the given client.
func New(client *htp1.Client) (*Session, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "htp1> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Session{
		client:  client,
		rl:      rl,
		watches: make(map[string]*subscription.Subscription),
	}, nil
}

// Run starts the interactive command loop.
func (s *Session) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()
	defer s.clearWatches()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "watch":
			s.cmdWatch(args)

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			if err := Execute(s.rl.Stdout(), s.client, cmd, args); err != nil {
				fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
			}
		}
	}
}

func (s *Session) printHelp() {
	fmt.Fprint(s.rl.Stdout(), `Commands:
  status            - Show power, volume, mute, input and upmix
  volume [db]       - Show or set the volume in dB
  mute [on|off]     - Show or toggle mute
  power [on|off]    - Show or set power state
  input [label]     - Show or select the active input
  inputs            - List visible input labels
  upmix [name]      - Show or select the upmix mode
  upmixes           - List available upmix modes
  watch <path>      - Print updates for a state path (watch off to stop)
  help              - Show this help
  quit              - Exit
`)
}

// cmdWatch subscribes to a state path and prints every update.
// "watch off" removes all active watches.
func (s *Session) cmdWatch(args []string) {
	out := s.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: watch <path> | watch off")
		return
	}

	if args[0] == "off" {
		n := len(s.watches)
		s.clearWatches()
		fmt.Fprintf(out, "Removed %d watch(es)\n", n)
		return
	}

	path := args[0]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if _, ok := s.watches[path]; ok {
		fmt.Fprintf(out, "Already watching %s\n", path)
		return
	}

	s.watches[path] = s.client.Subscribe(path, func(value any) {
		fmt.Fprintf(out, "\n%s = %v\n", path, value)
		s.rl.Refresh()
	})
	fmt.Fprintf(out, "Watching %s\n", path)
}

func (s *Session) clearWatches() {
	for path, sub := range s.watches {
		s.client.Unsubscribe(sub)
		delete(s.watches, path)
	}
}

// Execute runs a single control command against the client and writes
// the result to w. It is used by both the interactive loop and the
// one-shot command mode.
func Execute(w io.Writer, c *htp1.Client, cmd string, args []string) error {
	switch cmd {
	case "status":
		return cmdStatus(w, c)
	case "volume":
		return cmdVolume(w, c, args)
	case "mute":
		return cmdMute(w, c, args)
	case "power":
		return cmdPower(w, c, args)
	case "input":
		return cmdInput(w, c, args)
	case "inputs":
		return cmdInputs(w, c)
	case "upmix":
		return cmdUpmix(w, c, args)
	case "upmixes":
		return cmdUpmixes(w, c)
	default:
		return fmt.Errorf("unknown command: %s (try help)", cmd)
	}
}

func cmdStatus(w io.Writer, c *htp1.Client) error {
	if on, known := c.Power(); known {
		fmt.Fprintf(w, "Power:  %s\n", onOff(on))
	} else {
		fmt.Fprintf(w, "Power:  unknown\n")
	}

	if volume, err := c.Volume(); err == nil {
		fmt.Fprintf(w, "Volume: %.1f dB\n", volume)
	}
	if muted, err := c.Muted(); err == nil {
		fmt.Fprintf(w, "Muted:  %v\n", muted)
	}
	if input, err := c.Input(); err == nil {
		fmt.Fprintf(w, "Input:  %s\n", input)
	}
	if upmix, err := c.Upmix(); err == nil {
		fmt.Fprintf(w, "Upmix:  %s\n", upmix)
	}
	if serial, err := c.SerialNumber(); err == nil {
		fmt.Fprintf(w, "Serial: %s\n", serial)
	}
	return nil
}

func cmdVolume(w io.Writer, c *htp1.Client, args []string) error {
	if len(args) == 0 {
		volume, err := c.Volume()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Volume: %.1f dB\n", volume)
		return nil
	}

	db, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid volume %q", args[0])
	}
	if min, err := c.CalVolumeMin(); err == nil && db < min {
		return fmt.Errorf("volume %.1f below minimum %.1f", db, min)
	}
	if max, err := c.CalVolumeMax(); err == nil && db > max {
		return fmt.Errorf("volume %.1f above maximum %.1f", db, max)
	}

	return apply(c, func(tx *htp1.Tx) error { return tx.SetVolume(db) })
}

func cmdMute(w io.Writer, c *htp1.Client, args []string) error {
	if len(args) == 0 {
		muted, err := c.Muted()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Muted: %v\n", muted)
		return nil
	}

	muted, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return apply(c, func(tx *htp1.Tx) error { return tx.SetMuted(muted) })
}

func cmdPower(w io.Writer, c *htp1.Client, args []string) error {
	if len(args) == 0 {
		on, known := c.Power()
		if !known {
			fmt.Fprintln(w, "Power: unknown")
			return nil
		}
		fmt.Fprintf(w, "Power: %s\n", onOff(on))
		return nil
	}

	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return apply(c, func(tx *htp1.Tx) error { return tx.SetPower(on) })
}

func cmdInput(w io.Writer, c *htp1.Client, args []string) error {
	if len(args) == 0 {
		input, err := c.Input()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Input: %s\n", input)
		return nil
	}

	label := strings.Join(args, " ")
	return apply(c, func(tx *htp1.Tx) error { return tx.SetInput(label) })
}

func cmdInputs(w io.Writer, c *htp1.Client) error {
	labels := c.Inputs()
	if len(labels) == 0 {
		fmt.Fprintln(w, "No inputs available")
		return nil
	}
	for _, label := range labels {
		fmt.Fprintf(w, "  %s\n", label)
	}
	return nil
}

func cmdUpmix(w io.Writer, c *htp1.Client, args []string) error {
	if len(args) == 0 {
		upmix, err := c.Upmix()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Upmix: %s\n", upmix)
		return nil
	}

	return apply(c, func(tx *htp1.Tx) error { return tx.SetUpmix(args[0]) })
}

func cmdUpmixes(w io.Writer, c *htp1.Client) error {
	names := c.Upmixes()
	if len(names) == 0 {
		fmt.Fprintln(w, "No upmix modes available")
		return nil
	}
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", name)
	}
	return nil
}

// apply runs a write against the device in a single transaction.
// Commit leaves the transaction open for reuse; the deferred Discard
// releases it so the next command can Begin again.
func apply(c *htp1.Client, set func(tx *htp1.Tx) error) error {
	tx, err := c.Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := set(tx); err != nil {
		return err
	}
	_, err = tx.Commit()
	return err
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
