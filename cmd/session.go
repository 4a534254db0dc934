// File: cmd/session.go
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/solivara/vigil/api/schemas"
	"github.com/solivara/vigil/internal/observability"
)

const sessionBanner = `
  vigil — mission companion
  /start CODE LOCATION [obj;obj;...]   open a mission
  /state active|critical|recovery      change lifecycle state
  /challenge TEXT   /achievement TEXT  record mission notes
  /memory [KEY=]TEXT                   store a special memory
  /status                              show companion status
  /conclude                            close the mission and debrief
  /quit                                leave the session
  anything else is sent to the companion as a message
`

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Run the interactive companion session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context())
		},
	}
}

// runSession drives the interactive loop. All keyboard I/O and display
// formatting lives here; the engine never prints.
func runSession(ctx context.Context) error {
	logger := observability.GetLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, cleanup, err := buildCompanion(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	defer observability.Sync()

	g, _ := errgroup.WithContext(ctx)

	// Drain unsolicited output until the engine closes its stream.
	g.Go(func() error {
		for em := range eng.Emissions() {
			switch em.Kind {
			case schemas.EmissionAlert:
				fmt.Printf("\n!! %s\n> ", em.Text)
			default:
				fmt.Printf("\n[vigil] %s\n> ", em.Text)
			}
		}
		return nil
	})

	fmt.Print(sessionBanner)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		if err := dispatch(eng, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	eng.Close()
	if err := g.Wait(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("error reading from stdin: %w", err)
	}
	fmt.Println("Session closed.")
	return nil
}

// dispatch routes one input line to the engine boundary.
func dispatch(eng schemas.Companion, line string) error {
	if !strings.HasPrefix(line, "/") {
		response, ok, err := eng.SubmitMessage(line)
		if err != nil {
			return err
		}
		if ok {
			fmt.Println(response)
		}
		return nil
	}

	command, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case "start":
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			return fmt.Errorf("usage: /start CODE LOCATION [obj;obj;...]")
		}
		var objectives []string
		if len(fields) > 2 {
			for _, obj := range strings.Split(strings.Join(fields[2:], " "), ";") {
				if obj = strings.TrimSpace(obj); obj != "" {
					objectives = append(objectives, obj)
				}
			}
		}
		m, err := eng.Start(fields[0], fields[1], objectives)
		if err != nil {
			return err
		}
		fmt.Printf("Mission %s opened at %s.\n", m.Code, m.Location)
		return nil

	case "state":
		return eng.SetState(rest)

	case "challenge":
		return eng.RecordChallenge(rest)

	case "achievement":
		return eng.RecordAchievement(rest)

	case "memory":
		key, text := "", rest
		if k, v, found := strings.Cut(rest, "="); found {
			key, text = strings.TrimSpace(k), strings.TrimSpace(v)
		}
		used, err := eng.AddMemory(text, key)
		if err != nil {
			return err
		}
		fmt.Printf("Memory stored under %q.\n", used)
		return nil

	case "status":
		snap := eng.Status()
		fmt.Printf("operator=%s trust=%d state=%s stress=%s checkins=%d alerts=%d\n",
			snap.Operator, snap.Trust, snap.MissionState, snap.Stress, snap.Checkins, snap.Alerts)
		for name, activation := range snap.Activations {
			fmt.Printf("  layer %-10s activation=%d\n", name, activation)
		}
		return nil

	case "conclude":
		debrief, err := eng.Conclude()
		if err != nil {
			return err
		}
		fmt.Printf("Mission %s concluded after %s.\n", debrief.Code, debrief.Duration.Round(time.Second))
		fmt.Printf("  average stress %.2f, checkins %d, alerts %d\n",
			debrief.AverageStress, debrief.Checkins, debrief.Alerts)
		for _, c := range debrief.Challenges {
			fmt.Println("  challenge:", c)
		}
		for _, a := range debrief.Achievements {
			fmt.Println("  achievement:", a)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
