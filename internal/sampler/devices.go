package sampler

import (
	"github.com/gen2brain/malgo"

	"github.com/tmakinen/recwatch/internal/errors"
)

// AudioDevice describes one capture device available on the host.
type AudioDevice struct {
	Index   int
	Name    string
	ID      string
	Default bool
}

// ListAudioDevices enumerates the capture devices miniaudio can see. Used
// by the devices command and the capture source validation in check.
func ListAudioDevices() ([]AudioDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("sampler").
			Category(errors.CategoryAudioSource).
			Context("operation", "init-context").
			Build()
	}
	defer ctx.Uninit() //nolint:errcheck

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("sampler").
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate-devices").
			Build()
	}

	devices := make([]AudioDevice, 0, len(infos))
	for i, info := range infos {
		decodedID, err := hexToASCII(info.ID.String())
		if err != nil {
			continue
		}
		devices = append(devices, AudioDevice{
			Index:   i,
			Name:    info.Name(),
			ID:      decodedID,
			Default: info.IsDefault == 1,
		})
	}
	return devices, nil
}
