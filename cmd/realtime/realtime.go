// Package realtime implements the realtime monitoring command.
package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/monitor"
)

// Command creates the command that runs the detection pipeline.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Watch sensors and trigger recordings",
		Long:  "Start monitoring microphone levels and camera motion, starting a recording on the backend whenever a threshold is crossed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitor.RunRealtime(settings, monitor.Options{})
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Realtime.Audio.Source, "source", viper.GetString("realtime.audio.source"), "Audio capture source (\"sysdefault\", \"USB Audio\", \":0,0\", etc.)")
	cmd.Flags().Float64Var(&settings.Realtime.Detection.PeakThreshold, "peak", viper.GetFloat64("realtime.detection.peakthreshold"), "Normalized peak amplitude threshold, value between 0.0 and 1.0")
	cmd.Flags().Float64Var(&settings.Realtime.Detection.RMSThreshold, "rms", viper.GetFloat64("realtime.detection.rmsthreshold"), "Normalized RMS amplitude threshold, value between 0.0 and 1.0")
	cmd.Flags().IntVar(&settings.Realtime.Detection.CooldownPeriod, "cooldown", viper.GetInt("realtime.detection.cooldownperiod"), "Seconds between accepted detections")
	cmd.Flags().IntVar(&settings.Realtime.Detection.RecordingDuration, "duration", viper.GetInt("realtime.detection.recordingduration"), "Seconds a triggered recording runs before auto-stop")
	cmd.Flags().BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", viper.GetBool("realtime.telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.Telemetry.Listen, "listen", viper.GetString("realtime.telemetry.listen"), "Listen address and port of telemetry endpoint")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
