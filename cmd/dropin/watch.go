package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alfredjeanlab/dropin/internal/client"
	"github.com/alfredjeanlab/dropin/internal/events"
	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/alfredjeanlab/dropin/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream run lifecycle events",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetStringSlice("topic")
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if natsURL != "" {
			return watchNATS(ctx, natsURL, topics)
		}
		return runsClient.StreamEvents(ctx, topics, func(e client.Event) error {
			printEvent(e.Topic, e.Data)
			return nil
		})
	},
}

// eventPayload covers both created and updated payloads.
type eventPayload struct {
	ID      string     `json:"id"`
	Run     *model.Run `json:"run"`
	Changed []string   `json:"changed"`
	Index   string     `json:"index"`
}

// formatEvent renders one event as a single line. topic may be empty when
// the transport does not carry it.
func formatEvent(topic string, data []byte) (string, error) {
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("decoding event: %w", err)
	}
	if p.Run == nil && p.ID == "" {
		return "", fmt.Errorf("decoding event: missing run")
	}
	if topic == "" {
		topic = events.TopicRunCreated
		if p.Changed != nil || p.Index != "" {
			topic = events.TopicRunUpdated
		}
	}

	// A run that went inactive is announced by id only.
	if p.Run == nil {
		return fmt.Sprintf("%s %s index=%s [%s]", topic, p.ID, p.Index, ui.RenderStatus(false)), nil
	}

	var b strings.Builder
	ts := p.Run.UpdatedAt.Local().Format(time.TimeOnly)
	fmt.Fprintf(&b, "%s %s %s %s", ui.RenderMuted(ts), topic, p.Run.ID, ui.RenderAccent(p.Run.Name))
	if topic == events.TopicRunUpdated {
		fmt.Fprintf(&b, " changed=%s", strings.Join(p.Changed, ","))
		if p.Index != "" && p.Index != model.IndexKeep.String() {
			fmt.Fprintf(&b, " index=%s", p.Index)
		}
	}
	fmt.Fprintf(&b, " [%s]", ui.RenderStatus(p.Run.IsActive))
	return b.String(), nil
}

func printEvent(topic string, data []byte) {
	if jsonOutput {
		fmt.Println(string(data))
		return
	}
	line, err := formatEvent(topic, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Println(line)
}

// watchNATS subscribes to the bus directly instead of the server's stream.
func watchNATS(ctx context.Context, natsURL string, topics []string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	if len(topics) == 0 {
		topics = []string{events.TopicAll}
	}
	merged := make(chan []byte, 64)
	for _, t := range topics {
		ch, cancel, err := sub.Subscribe(t)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", t, err)
		}
		defer cancel()
		go func() {
			for data := range ch {
				select {
				case merged <- data:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-merged:
			printEvent("", data)
		}
	}
}

func init() {
	watchCmd.Flags().StringSliceP("topic", "t", nil, "topic patterns to follow (default all)")
	watchCmd.Flags().String("nats", os.Getenv("DROPIN_NATS_URL"), "read events from NATS instead of the server")
}
