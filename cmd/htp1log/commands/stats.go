package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/htp1-protocol/htp1-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	FramesByCommand   map[string]int
	Connections       map[string]*ConnectionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Host      string
	Frames    int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		FramesByCommand:   make(map[string]int),
		Connections:       make(map[string]*ConnectionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track connection stats
		conn, ok := stats.Connections[event.ConnectionID]
		if !ok {
			conn = &ConnectionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Connections[event.ConnectionID] = conn
		}
		conn.Events++
		if event.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = event.Timestamp
		}
		if event.Host != "" && conn.Host == "" {
			conn.Host = event.Host
		}

		if event.Frame != nil {
			conn.Frames++
			stats.FramesByCommand[event.Frame.Command]++
		}

		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== HTP-1 Protocol Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryFrame, log.CategoryState, log.CategoryError} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", c.String(), n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if n := stats.EventsByDirection[d]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", d.String(), n)
		}
	}
	fmt.Fprintln(w)

	if len(stats.FramesByCommand) > 0 {
		fmt.Fprintln(w, "Frames by Command:")
		commands := make([]string, 0, len(stats.FramesByCommand))
		for cmd := range stats.FramesByCommand {
			commands = append(commands, cmd)
		}
		sort.Strings(commands)
		for _, cmd := range commands {
			fmt.Fprintf(w, "  %s: %d\n", cmd, stats.FramesByCommand[cmd])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	connIDs := make([]string, 0, len(stats.Connections))
	for id := range stats.Connections {
		connIDs = append(connIDs, id)
	}
	sort.Strings(connIDs)
	for _, id := range connIDs {
		conn := stats.Connections[id]
		fmt.Fprintf(w, "  %s: %d events, %d frames", shortenConnID(id), conn.Events, conn.Frames)
		if conn.Host != "" {
			fmt.Fprintf(w, ", host %s", conn.Host)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
}
