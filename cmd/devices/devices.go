// Package devices implements the capture device listing command.
package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/sampler"
)

// Command creates the command that lists available capture devices.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := sampler.ListAudioDevices()
			if err != nil {
				return fmt.Errorf("failed to list capture devices: %w", err)
			}

			if len(devices) == 0 {
				fmt.Println("No capture devices found")
				return nil
			}

			fmt.Println("Available capture devices:")
			for _, d := range devices {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Printf("%s %d: %s (%s)\n", marker, d.Index, d.Name, d.ID)
			}
			return nil
		},
	}
}
