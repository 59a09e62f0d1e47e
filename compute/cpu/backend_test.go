package cpu

import (
	"errors"
	"testing"

	"github.com/gogpu/smoke/compute"
)

func newBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b := New(append([]Option{WithWorkers(4)}, opts...)...)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newGrid(t *testing.T, b *Backend, r int, f compute.Format) compute.GridID {
	t.Helper()
	id, err := b.CreateGrid(compute.GridDescriptor{Label: "test", Resolution: r, Format: f})
	if err != nil {
		t.Fatalf("CreateGrid(%d, %s) error = %v", r, f, err)
	}
	return id
}

func findKernel(t *testing.T, b *Backend, name string) compute.KernelID {
	t.Helper()
	k, err := b.FindKernel(name)
	if err != nil {
		t.Fatalf("FindKernel(%s) error = %v", name, err)
	}
	return k
}

// dispatch binds grids to a kernel and runs it over an r³ grid.
func dispatch(t *testing.T, b *Backend, name string, r int, binds map[string]compute.GridID) {
	t.Helper()
	k := findKernel(t, b, name)
	for slot, g := range binds {
		if err := b.SetGrid(k, slot, g); err != nil {
			t.Fatalf("SetGrid(%s.%s) error = %v", name, slot, err)
		}
	}
	n := compute.GroupCount(r, 4)
	if err := b.Dispatch(k, n, n, n); err != nil {
		t.Fatalf("Dispatch(%s) error = %v", name, err)
	}
}

func read(t *testing.T, b *Backend, g compute.GridID) []float32 {
	t.Helper()
	data, err := b.ReadGrid(g)
	if err != nil {
		t.Fatalf("ReadGrid() error = %v", err)
	}
	return data
}

// =============================================================================
// Resource Tests
// =============================================================================

func TestBackendName(t *testing.T) {
	if got := newBackend(t).Name(); got != "cpu" {
		t.Errorf("Name() = %q, want %q", got, "cpu")
	}
	if !compute.IsRegistered(compute.BackendCPU) {
		t.Error("cpu backend should be auto-registered")
	}
}

func TestCreateGridZeroFilled(t *testing.T) {
	b := newBackend(t)
	g := newGrid(t, b, 8, compute.FormatRGBA32Float)
	data := read(t, b, g)
	if len(data) != 8*8*8*4 {
		t.Fatalf("len = %d, want %d", len(data), 8*8*8*4)
	}
	for i, v := range data {
		if v != 0 {
			t.Fatalf("cell %d = %v, want 0", i, v)
		}
	}
	if b.MemoryUsed() != 8*8*8*16 {
		t.Errorf("MemoryUsed() = %d", b.MemoryUsed())
	}
	b.DestroyGrid(g)
	b.DestroyGrid(g)
	if b.MemoryUsed() != 0 {
		t.Errorf("MemoryUsed() = %d after destroy, want 0", b.MemoryUsed())
	}
	if _, err := b.ReadGrid(g); !errors.Is(err, compute.ErrUnknownGrid) {
		t.Errorf("ReadGrid(destroyed) error = %v, want ErrUnknownGrid", err)
	}
}

func TestCreateGridOutOfMemory(t *testing.T) {
	b := newBackend(t, WithMemoryLimit(16*16*16*16+1))
	newGrid(t, b, 16, compute.FormatRGBA32Float)
	_, err := b.CreateGrid(compute.GridDescriptor{Label: "velocity/b", Resolution: 16, Format: compute.FormatRGBA32Float})
	if !errors.Is(err, compute.ErrOutOfMemory) {
		t.Fatalf("CreateGrid over limit error = %v, want ErrOutOfMemory", err)
	}
}

func TestCreateGridInvalid(t *testing.T) {
	b := newBackend(t)
	if _, err := b.CreateGrid(compute.GridDescriptor{Resolution: -1, Format: compute.FormatR32Float}); !errors.Is(err, compute.ErrInvalidDescriptor) {
		t.Errorf("CreateGrid(-1) error = %v", err)
	}
	if _, err := b.CreateImage(compute.ImageDescriptor{Width: 0, Height: 4}); !errors.Is(err, compute.ErrInvalidDescriptor) {
		t.Errorf("CreateImage(0x4) error = %v", err)
	}
}

func TestWriteGridLength(t *testing.T) {
	b := newBackend(t)
	g := newGrid(t, b, 4, compute.FormatR32Float)
	if err := b.WriteGrid(g, make([]float32, 3)); err == nil {
		t.Error("WriteGrid with short data should fail")
	}
	in := make([]float32, 64)
	in[5] = 2.5
	if err := b.WriteGrid(g, in); err != nil {
		t.Fatalf("WriteGrid() error = %v", err)
	}
	if got := read(t, b, g)[5]; got != 2.5 {
		t.Errorf("cell 5 = %v, want 2.5", got)
	}
}

func TestClosedBackend(t *testing.T) {
	b := New()
	g, _ := b.CreateGrid(compute.GridDescriptor{Resolution: 4, Format: compute.FormatR32Float})
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := b.ReadGrid(g); !errors.Is(err, compute.ErrClosed) {
		t.Errorf("ReadGrid after Close error = %v, want ErrClosed", err)
	}
	if _, err := b.FindKernel(compute.KernelInit); !errors.Is(err, compute.ErrClosed) {
		t.Errorf("FindKernel after Close error = %v, want ErrClosed", err)
	}
}

// =============================================================================
// Kernel and Binding Tests
// =============================================================================

func TestFindKernel(t *testing.T) {
	b := newBackend(t)
	k1 := findKernel(t, b, compute.KernelAdvect)
	k2 := findKernel(t, b, compute.KernelAdvect)
	if k1 != k2 {
		t.Errorf("FindKernel twice = %d, %d; want same id", k1, k2)
	}
	if _, err := b.FindKernel("Vorticity"); !errors.Is(err, compute.ErrKernelNotFound) {
		t.Errorf("FindKernel(Vorticity) error = %v, want ErrKernelNotFound", err)
	}
}

func TestThreadGroupSize(t *testing.T) {
	b := newBackend(t)
	if x, y, z := b.ThreadGroupSize(findKernel(t, b, compute.KernelPressure)); x != 4 || y != 4 || z != 4 {
		t.Errorf("Pressure group = %dx%dx%d, want 4x4x4", x, y, z)
	}
	if x, y, z := b.ThreadGroupSize(findKernel(t, b, compute.KernelRaymarch)); x != 8 || y != 8 || z != 1 {
		t.Errorf("Raymarch group = %dx%dx%d, want 8x8x1", x, y, z)
	}
	if x, y, z := b.ThreadGroupSize(99); x != 0 || y != 0 || z != 0 {
		t.Errorf("unknown kernel group = %dx%dx%d, want zeros", x, y, z)
	}
}

func TestSetGridValidation(t *testing.T) {
	b := newBackend(t)
	k := findKernel(t, b, compute.KernelAdvect)
	scalar := newGrid(t, b, 4, compute.FormatR32Float)
	vec := newGrid(t, b, 4, compute.FormatRGBA32Float)

	if err := b.SetGrid(k, compute.SlotSourcePressure, vec); !errors.Is(err, compute.ErrUnknownSlot) {
		t.Errorf("undeclared slot error = %v, want ErrUnknownSlot", err)
	}
	if err := b.SetGrid(k, compute.SlotSource, scalar); !errors.Is(err, compute.ErrUnknownSlot) {
		t.Errorf("format mismatch error = %v, want ErrUnknownSlot", err)
	}
	if err := b.SetGrid(k, compute.SlotSource, 1234); !errors.Is(err, compute.ErrUnknownGrid) {
		t.Errorf("unknown grid error = %v, want ErrUnknownGrid", err)
	}
	if err := b.SetGrid(k, compute.SlotSource, vec); err != nil {
		t.Errorf("SetGrid() error = %v", err)
	}
}

func TestDispatchRejectsAliasing(t *testing.T) {
	b := newBackend(t)
	g := newGrid(t, b, 4, compute.FormatRGBA32Float)
	for _, name := range []string{compute.KernelAdvect, compute.KernelDiffuse, compute.KernelInject, compute.KernelProjectField} {
		k := findKernel(t, b, name)
		p := newGrid(t, b, 4, compute.FormatR32Float)
		_ = b.SetGrid(k, compute.SlotSourcePressure, p)
		_ = b.SetGrid(k, compute.SlotSource, g)
		_ = b.SetGrid(k, compute.SlotDestination, g)
		if err := b.Dispatch(k, 1, 1, 1); !errors.Is(err, compute.ErrAliasedBinding) {
			t.Errorf("%s aliased dispatch error = %v, want ErrAliasedBinding", name, err)
		}
	}
}

func TestDispatchRejectsUnboundAndBadSize(t *testing.T) {
	b := newBackend(t)
	k := findKernel(t, b, compute.KernelDivergence)
	v := newGrid(t, b, 4, compute.FormatRGBA32Float)
	_ = b.SetGrid(k, compute.SlotSource, v)
	if err := b.Dispatch(k, 1, 1, 1); !errors.Is(err, compute.ErrUnboundSlot) {
		t.Errorf("unbound dispatch error = %v, want ErrUnboundSlot", err)
	}
	_ = b.SetGrid(k, compute.SlotDestinationDivergence, newGrid(t, b, 4, compute.FormatR32Float))
	if err := b.Dispatch(k, 0, 1, 1); !errors.Is(err, compute.ErrInvalidDispatch) {
		t.Errorf("zero-group dispatch error = %v, want ErrInvalidDispatch", err)
	}
	if err := b.Dispatch(k, 1, 1, 1); err != nil {
		t.Errorf("Dispatch() error = %v", err)
	}
	if b.Dispatches() != 1 {
		t.Errorf("Dispatches() = %d, want 1", b.Dispatches())
	}
}

func TestDispatchRejectsResolutionMismatch(t *testing.T) {
	b := newBackend(t)
	k := findKernel(t, b, compute.KernelAdvect)
	_ = b.SetGrid(k, compute.SlotSource, newGrid(t, b, 4, compute.FormatRGBA32Float))
	_ = b.SetGrid(k, compute.SlotDestination, newGrid(t, b, 8, compute.FormatRGBA32Float))
	if err := b.Dispatch(k, 2, 2, 2); !errors.Is(err, compute.ErrResolutionMismatch) {
		t.Errorf("mismatched dispatch error = %v, want ErrResolutionMismatch", err)
	}
}

func TestDispatchDestroyedGrid(t *testing.T) {
	b := newBackend(t)
	k := findKernel(t, b, compute.KernelClear)
	p := newGrid(t, b, 4, compute.FormatR32Float)
	_ = b.SetGrid(k, compute.SlotDestinationPressure, p)
	b.DestroyGrid(p)
	if err := b.Dispatch(k, 1, 1, 1); err == nil {
		t.Error("dispatch with destroyed grid should fail")
	}
}
