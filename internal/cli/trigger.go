package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/notify"
	"github.com/spf13/cobra"
)

// NewTriggerCmd sends one control command to a running notification engine.
func NewTriggerCmd(configPath *string) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Send a control command to the notification engine",
	}
	cmd.PersistentFlags().StringVar(&target, "target", "", "control listener address (defaults to notify.control_target)")

	send := func(command notify.Command) error {
		addr := target
		if addr == "" {
			cfg, err := config.Load(*configPath)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			addr = cfg.Notify.ControlTarget
		}
		client, err := notify.DialControl(addr)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.Send(command); err != nil {
			return err
		}
		fmt.Printf("sent %s to %s\n", command.Encode(), addr)
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start <student>",
		Short: "Start a student's countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(notify.StartTimer{Student: args[0]})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stop <student>",
		Short: "Stop a student's countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(notify.StopTimer{Student: args[0]})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "event <text>",
		Short: "Relay a quiz event to every registered client",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(notify.Event{Scope: notify.EventGeneral, Text: strings.Join(args, " ")})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "score <student> <score> <total>",
		Short: "Relay a score to the student and teachers",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("score: %w", err)
			}
			total, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("total: %w", err)
			}
			return send(notify.StudentScored(args[0], score, total))
		},
	})
	return cmd
}
