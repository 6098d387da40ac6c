package tracing

import (
	"context"
	"testing"
)

func TestDisabledProviderIsInert(t *testing.T) {
	p, err := NewProvider(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.IsEnabled() {
		t.Error("disabled provider reports enabled")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on disabled provider: %v", err)
	}
}

func TestNewProviderRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing service name", Config{Enabled: true, SamplingRate: 1}},
		{"sampling rate above 1", Config{Enabled: true, ServiceName: "creel-api", SamplingRate: 2}},
		{"negative sampling rate", Config{Enabled: true, ServiceName: "creel-api", SamplingRate: -0.5}},
		{"unknown exporter", Config{Enabled: true, ServiceName: "creel-api", SamplingRate: 1, ExporterType: "jaeger"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(tt.cfg); err == nil {
				t.Error("NewProvider accepted invalid config")
			}
		})
	}
}

func TestStartDBSpanEndsWithoutProvider(t *testing.T) {
	// Without an installed SDK the span is a no-op; the helper must still
	// hand back a usable context and end func.
	ctx, end := StartDBSpan(context.Background(), "catches", DBOperationQuery)
	if ctx == nil {
		t.Fatal("nil context from StartDBSpan")
	}
	end(nil)
}
