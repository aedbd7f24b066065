package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/owl-uav/owlink/device"
)

type emptySource struct{}

func (emptySource) Devices() []*device.Device { return nil }

func TestStartValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing broker", Config{FleetID: "test"}},
		{"missing fleet id", Config{Broker: "tcp://localhost:1883"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, emptySource{})
			if err := p.Start(context.Background()); err == nil {
				t.Error("Start() should fail")
				p.Stop()
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	p := New(Config{Broker: "tcp://localhost:1883", FleetID: "test"}, emptySource{})
	if p.cfg.TopicPrefix != DefaultTopicPrefix {
		t.Errorf("TopicPrefix = %q, want %q", p.cfg.TopicPrefix, DefaultTopicPrefix)
	}
	if p.cfg.PublishInterval != time.Second {
		t.Errorf("PublishInterval = %v, want 1s", p.cfg.PublishInterval)
	}
}

func TestDeviceTopic(t *testing.T) {
	p := New(Config{Broker: "b", FleetID: "field-test-2"}, emptySource{})
	if got := p.deviceTopic(7); got != "owlink/field-test-2/device/7" {
		t.Errorf("deviceTopic(7) = %q", got)
	}
}

func TestStopBeforeStart(t *testing.T) {
	p := New(Config{Broker: "b", FleetID: "f"}, emptySource{})
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
}
