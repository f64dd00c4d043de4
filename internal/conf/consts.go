// conf/consts.go hard coded capture constants
package conf

const (
	NumChannels = 1     // mono capture
	BitDepth    = 16    // bits per sample
	FullScale   = 32768 // max absolute value of a signed 16-bit sample
)
