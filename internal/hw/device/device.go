package device

import (
	"errors"
)

// AccessMode is the access a camera reports for one of its features.
type AccessMode int

const (
	NotAvailable AccessMode = iota
	ReadOnly
	WriteOnly
	ReadWrite
)

// Writable reports whether a feature can be both read back and changed.
// Only ReadWrite counts: write-only features can't be verified.
func (m AccessMode) Writable() bool {
	return m == ReadWrite
}

func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "RO"
	case WriteOnly:
		return "WO"
	case ReadWrite:
		return "RW"
	default:
		return "NA"
	}
}

// Feature names a camera feature (GenICam node name).
type Feature string

const (
	Gain             Feature = "Gain"
	GainAuto         Feature = "GainAuto"
	BalanceRatio     Feature = "BalanceRatio"
	BalanceWhiteAuto Feature = "BalanceWhiteAuto"
	Gamma            Feature = "Gamma"
	PixelFormat      Feature = "PixelFormat"
	ExposureAuto     Feature = "ExposureAuto"
	ExposureTime     Feature = "ExposureTime"
	LineSelector     Feature = "LineSelector"
	V3_3Enable       Feature = "V3_3Enable"
	TriggerMode      Feature = "TriggerMode"
	TriggerSource    Feature = "TriggerSource"
	TriggerOverlap   Feature = "TriggerOverlap"
	AcquisitionMode  Feature = "AcquisitionMode"
)

// Enumeration entries used by the rig.
const (
	Off = "Off"
	On  = "On"

	OverlapReadOut = "ReadOut"
	SingleFrame    = "SingleFrame"
)

// Format is a pixel format symbolic name.
type Format string

const (
	BayerRG8 Format = "BayerRG8"
	RGB8     Format = "RGB8"
)

var (
	// ErrNotFound is returned when no camera with the requested serial is attached.
	ErrNotFound = errors.New("camera not found")

	// ErrAccess is returned when a feature is read or written against its access mode.
	ErrAccess = errors.New("feature access denied")
)

// Camera is a handle on one machine-vision camera exposed by the vendor SDK.
// Every call blocks until the camera answers or the SDK times out.
type Camera interface {
	Serial() string

	Init() error
	DeInit() error

	AccessMode(f Feature) AccessMode

	Enum(f Feature) (string, error)
	SetEnum(f Feature, value string) error
	Float(f Feature) (float64, error)
	FloatMax(f Feature) (float64, error)
	SetFloat(f Feature, value float64) error
	Bool(f Feature) (bool, error)
	SetBool(f Feature, value bool) error

	BeginAcquisition() error
	EndAcquisition() error

	// NextFrame blocks for the next frame using the SDK default timeout.
	NextFrame() (Frame, error)
}

// Frame is a camera-owned frame buffer. Release must be called exactly once.
type Frame interface {
	Incomplete() bool
	Status() int
	Convert(f Format) (Image, error)
	Release() error
}

// Image is a converted copy of a frame, owned by the caller.
type Image interface {
	Save(path string) error
}

// System enumerates attached cameras.
type System interface {
	CameraBySerial(serial string) (Camera, error)
	Close() error
}
