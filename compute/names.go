package compute

// Kernel entry point names.
const (
	KernelInit              = "Init"
	KernelAdvect            = "Advect"
	KernelInject            = "Inject"
	KernelDiffuse           = "Diffuse"
	KernelDivergence        = "Divergence"
	KernelProjectField      = "ProjectField"
	KernelPressure          = "Pressure"
	KernelClear             = "Clear"
	KernelBoundaryCondition = "BoundaryCondition"
	KernelRaymarch          = "Raymarch"
)

// Binding slot names.
const (
	SlotSource                = "_Source"
	SlotDestination           = "_Destination"
	SlotDestinationDivergence = "_DestinationDivergence"
	SlotSourceDivergence      = "_SourceDivergence"
	SlotSourcePressure        = "_SourcePressure"
	SlotDestinationPressure   = "_DestinationPressure"
	SlotDensityTexture        = "_DensityTexture"
	SlotDivergenceTexture     = "_DivergenceTexture"
	SlotPressureTexture       = "_PressureTexture"
	SlotResult                = "Result"
)

// Service-wide uniform names.
const (
	UniformDT             = "_dt"
	UniformResolution     = "_resolution"
	UniformViscosity      = "_viscosity"
	UniformDecay          = "_decay"
	UniformTime           = "_time"
	UniformVelocity       = "_velocity"
	UniformInjectPosition = "_injectPosition"
	UniformInjectRadius   = "_injectRadius"
	UniformInjectDensity  = "_injectDensity"

	UniformCameraToWorld           = "_CameraToWorld"
	UniformCameraInverseProjection = "_CameraInverseProjection"
	UniformDensity                 = "_density"
	UniformShadowAmount            = "_shadowAmount"
	UniformDebugView               = "_debugView"
	UniformRaymarchSteps           = "_raymarchSteps"
)

// Access describes how a kernel uses a bound resource.
type Access uint8

// Access modes.
const (
	AccessRead Access = iota + 1
	AccessWrite
)

// String returns the string representation of Access.
func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ResourceKind is the kind of resource a slot accepts.
type ResourceKind uint8

// Resource kinds.
const (
	ResourceGrid ResourceKind = iota + 1
	ResourceImage
)

// Binding declares one resource slot of a kernel.
type Binding struct {
	Slot   string
	Access Access
	Kind   ResourceKind
	Format Format
}

func grid(slot string, access Access, format Format) Binding {
	return Binding{Slot: slot, Access: access, Kind: ResourceGrid, Format: format}
}

// Bindings is the binding contract of every kernel. Slot order is the
// binding order used by GPU backends (binding N+1; binding 0 is the uniform
// block). The table must not be modified.
var Bindings = map[string][]Binding{
	KernelInit: {
		grid(SlotDestination, AccessWrite, FormatRGBA32Float),
	},
	KernelAdvect: {
		grid(SlotSource, AccessRead, FormatRGBA32Float),
		grid(SlotDestination, AccessWrite, FormatRGBA32Float),
	},
	KernelInject: {
		grid(SlotSource, AccessRead, FormatRGBA32Float),
		grid(SlotDestination, AccessWrite, FormatRGBA32Float),
	},
	KernelDiffuse: {
		grid(SlotSource, AccessRead, FormatRGBA32Float),
		grid(SlotDestination, AccessWrite, FormatRGBA32Float),
	},
	KernelDivergence: {
		grid(SlotSource, AccessRead, FormatRGBA32Float),
		grid(SlotDestinationDivergence, AccessWrite, FormatR32Float),
	},
	KernelClear: {
		grid(SlotDestinationPressure, AccessWrite, FormatR32Float),
	},
	KernelPressure: {
		grid(SlotSourceDivergence, AccessRead, FormatR32Float),
		grid(SlotSourcePressure, AccessRead, FormatR32Float),
		grid(SlotDestinationPressure, AccessWrite, FormatR32Float),
	},
	KernelProjectField: {
		grid(SlotSourcePressure, AccessRead, FormatR32Float),
		grid(SlotSource, AccessRead, FormatRGBA32Float),
		grid(SlotDestination, AccessWrite, FormatRGBA32Float),
	},
	// BoundaryCondition rewrites the outer shell of its destination in place.
	// It reads no cell it does not write, so there is no intra-dispatch hazard.
	KernelBoundaryCondition: {
		grid(SlotDestination, AccessWrite, FormatRGBA32Float),
	},
	KernelRaymarch: {
		grid(SlotDensityTexture, AccessRead, FormatRGBA32Float),
		grid(SlotDivergenceTexture, AccessRead, FormatR32Float),
		grid(SlotPressureTexture, AccessRead, FormatR32Float),
		{Slot: SlotResult, Access: AccessWrite, Kind: ResourceImage},
	},
}

// LookupBinding returns the declaration of slot in kernel.
func LookupBinding(kernel, slot string) (Binding, bool) {
	for _, b := range Bindings[kernel] {
		if b.Slot == slot {
			return b, true
		}
	}
	return Binding{}, false
}
