package compute

import (
	"errors"
	"testing"
)

// stubService satisfies Service for registry tests. Only Name and Close
// are called.
type stubService struct {
	Service
	name string
}

func (s *stubService) Name() string { return s.name }
func (s *stubService) Close() error { return nil }

func withFactories(t *testing.T, m map[string]Factory) {
	t.Helper()
	registryMu.Lock()
	saved := factories
	factories = m
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		factories = saved
		registryMu.Unlock()
	})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	withFactories(t, map[string]Factory{})

	Register("test", func() (Service, error) { return &stubService{name: "test"}, nil })
	if !IsRegistered("test") {
		t.Fatal("test backend should be registered")
	}

	svc, err := Get("test")
	if err != nil {
		t.Fatalf("Get(test) error = %v", err)
	}
	if svc.Name() != "test" {
		t.Errorf("Name() = %q, want %q", svc.Name(), "test")
	}

	Unregister("test")
	if IsRegistered("test") {
		t.Error("test backend should be unregistered")
	}
	if _, err := Get("test"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Get after Unregister error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryAvailableSorted(t *testing.T) {
	withFactories(t, map[string]Factory{})
	for _, n := range []string{"zeta", "alpha", "mid"} {
		n := n
		Register(n, func() (Service, error) { return &stubService{name: n}, nil })
	}
	got := Available()
	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("Available() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Available()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistryDefaultPriority(t *testing.T) {
	withFactories(t, map[string]Factory{
		BackendCPU:  func() (Service, error) { return &stubService{name: BackendCPU}, nil },
		BackendWGPU: func() (Service, error) { return &stubService{name: BackendWGPU}, nil },
	})
	svc, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if svc.Name() != BackendWGPU {
		t.Errorf("Default() = %q, want %q", svc.Name(), BackendWGPU)
	}
}

func TestRegistryDefaultFallback(t *testing.T) {
	gpuErr := errors.New("no adapter")
	withFactories(t, map[string]Factory{
		BackendWGPU: func() (Service, error) { return nil, gpuErr },
		BackendCPU:  func() (Service, error) { return &stubService{name: BackendCPU}, nil },
	})
	svc, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if svc.Name() != BackendCPU {
		t.Errorf("Open(\"\") = %q, want %q", svc.Name(), BackendCPU)
	}

	if _, err := Open(BackendWGPU); !errors.Is(err, gpuErr) {
		t.Errorf("Open(wgpu) error = %v, want wrapped %v", err, gpuErr)
	}
}

func TestRegistryDefaultNone(t *testing.T) {
	withFactories(t, map[string]Factory{})
	if _, err := Default(); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Default() error = %v, want ErrBackendNotAvailable", err)
	}
}
