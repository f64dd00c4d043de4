// Package check implements the backend connectivity probe command.
package check

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmakinen/recwatch/internal/backend"
	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/logging"
)

// Command creates the command that probes the recording backend: connect,
// authenticate, start a short recording and stop it again.
func Command(settings *conf.Settings) *cobra.Command {
	var recordSeconds int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the recording backend is reachable",
		Long:  "Connect to the configured recording backend, optionally run a short test recording, and report the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(settings, recordSeconds)
		},
	}

	cmd.Flags().IntVar(&recordSeconds, "record", 0, "Run a test recording of this many seconds (0 skips the recording test)")
	return cmd
}

func runCheck(settings *conf.Settings, recordSeconds int) error {
	client := backend.NewOBSClient(&settings.Backend.OBS, logging.ForService("obs-check"))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Printf("Connecting to OBS at %s:%d...\n", settings.Backend.OBS.Host, settings.Backend.OBS.Port)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("backend connection failed: %w", err)
	}
	defer client.Disconnect()
	fmt.Println("Connected and authenticated")

	recording, err := client.IsRecording()
	if err != nil {
		return fmt.Errorf("status query failed: %w", err)
	}
	fmt.Printf("Backend recording status: %v\n", recording)

	if recordSeconds <= 0 {
		return nil
	}
	if recording {
		return fmt.Errorf("backend is already recording, refusing to run test recording")
	}

	fmt.Printf("Starting %d second test recording...\n", recordSeconds)
	if err := client.StartRecording(); err != nil {
		return fmt.Errorf("test recording start failed: %w", err)
	}

	time.Sleep(time.Duration(recordSeconds) * time.Second)

	if err := client.StopRecording(); err != nil {
		return fmt.Errorf("test recording stop failed: %w", err)
	}
	fmt.Println("Test recording completed")
	return nil
}
