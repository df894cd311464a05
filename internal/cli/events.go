package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <list-id>",
		Short: "Stream live events from a list",
		Long: `Connect to the list's SSE endpoint and stream events in real-time.

Events include:
  - member_joined: A player joined through the share code
  - member_left: A member left or was removed
  - share_code_rotated: The owner replaced the share code
  - core_added: A creature's soul core is now tracked
  - core_obtained: A member character obtained a soul core
  - core_unlocked: An obtained soul core was unlocked

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(listID string, jsonOutput bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := client.Stream(ctx, listPath(listID, "events"))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if !jsonOutput {
		fmt.Printf("Connected to list %s\n", listID)
	}

	// Parse SSE stream
	scanner := bufio.NewScanner(resp.Body)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		} else if line == "" {
			// End of event
			if currentEvent != "" {
				data := strings.Join(dataLines, "\n")
				printEvent(currentEvent, data, jsonOutput)
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is expected
		if ctx.Err() != nil {
			if !jsonOutput {
				fmt.Println("\nDisconnected")
			}
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Println("Disconnected")
	}
	return nil
}

// listEvent is the subset of an event's data the text output describes
type listEvent struct {
	Member *struct {
		CharacterName string `json:"character_name"`
	} `json:"member"`
	Core *struct {
		CreatureID     string `json:"creature_id"`
		ObtainedByName string `json:"obtained_by_name"`
	} `json:"core"`
}

func describeEvent(data string) string {
	var e listEvent
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return strings.ReplaceAll(data, "\n", " ")
	}
	switch {
	case e.Member != nil:
		return e.Member.CharacterName
	case e.Core != nil && e.Core.ObtainedByName != "":
		return fmt.Sprintf("%s by %s", e.Core.CreatureID, e.Core.ObtainedByName)
	case e.Core != nil:
		return e.Core.CreatureID
	}
	return ""
}

func printEvent(event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		evt := SSEEvent{
			Time:  now,
			Event: event,
			Data:  data,
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Println(string(jsonData))
		return
	}

	fmt.Printf("[%s] %s: %s\n", now.Format("2006-01-02 15:04:05"), event, describeEvent(data))
}
