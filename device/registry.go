package device

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/owl-uav/owlink/core/codec"
	"github.com/owl-uav/owlink/core/mavlink"
)

// Registry owns the Device set for one serial link. Devices are created
// lazily the first time traffic arrives for (or a command targets) an id.
//
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	devices map[uint8]*Device
	log     *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger selects slog.Default.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		devices: make(map[uint8]*Device),
		log:     log.WithGroup("device"),
	}
}

// Get returns the device with the given id, or nil if none is registered.
func (r *Registry) Get(id uint8) *Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices[id]
}

// GetOrCreate returns the device with the given id, registering it first if
// needed. Ids outside the link's channel range are rejected.
func (r *Registry) GetOrCreate(id uint8) (*Device, error) {
	if id < codec.MinDeviceID || id > codec.MaxDeviceID {
		return nil, codec.ErrInvalidDevice
	}

	r.mu.RLock()
	d := r.devices[id]
	r.mu.RUnlock()
	if d != nil {
		return d, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if d := r.devices[id]; d != nil {
		return d, nil
	}
	d = newDevice(id)
	r.devices[id] = d
	r.log.Info("registered device", "id", id)
	return d, nil
}

// List returns all registered devices ordered by id.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Dispatch routes one decoded message to the device it arrived from,
// registering the device on first contact.
func (r *Registry) Dispatch(deviceID uint8, msg mavlink.Message) error {
	d, err := r.GetOrCreate(deviceID)
	if err != nil {
		return err
	}
	d.Handle(msg)
	return nil
}
