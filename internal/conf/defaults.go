// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "RecWatch")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "recwatch.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", "Sunday")

	viper.SetDefault("realtime.statusinterval", 30)

	viper.SetDefault("realtime.audio.enabled", true)
	viper.SetDefault("realtime.audio.source", "sysdefault")
	viper.SetDefault("realtime.audio.samplerate", 44100)
	viper.SetDefault("realtime.audio.buffersize", 1024)

	viper.SetDefault("realtime.motion.enabled", false)
	viper.SetDefault("realtime.motion.device", 0)
	viper.SetDefault("realtime.motion.pollinterval", 100)

	viper.SetDefault("realtime.detection.peakthreshold", 0.5)
	viper.SetDefault("realtime.detection.rmsthreshold", 0.01)
	viper.SetDefault("realtime.detection.motionarea", 1000)
	viper.SetDefault("realtime.detection.cooldownperiod", 30)
	viper.SetDefault("realtime.detection.recordingduration", 3600)

	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topic", "recwatch")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("backend.obs.host", "localhost")
	viper.SetDefault("backend.obs.port", 4444)
	viper.SetDefault("backend.obs.password", "")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
}
