package capture

import (
	"path/filepath"

	"github.com/cjeanneret/BracketGo/internal/hw/device"
	"github.com/cjeanneret/BracketGo/internal/logic/exposure"
)

// Representation is one of the two encodings written for every frame.
type Representation int

const (
	Raw Representation = iota // bit-depth preserving bayer data
	RGB                       // demosaiced 8-bit per channel, PNG
)

// Representations lists the encodings in write order.
var Representations = []Representation{Raw, RGB}

// Dir is the subdirectory holding this representation.
func (r Representation) Dir() string {
	if r == RGB {
		return "RGB"
	}
	return "RAW"
}

// Format is the pixel format the frame is converted to.
func (r Representation) Format() device.Format {
	if r == RGB {
		return device.RGB8
	}
	return device.BayerRG8
}

// FileName returns the file name for a capture stem.
func (r Representation) FileName(stem string) string {
	if r == RGB {
		return stem + "_RGBImage.png"
	}
	return stem + "_RAWImage.raw"
}

// Layout maps captures to paths below each camera's root directory:
//
//	<root>/<short_exposure|long_exposure>/<RAW|RGB>/<stem>_<RAWImage.raw|RGBImage.png>
//
// The directories must already exist.
type Layout struct {
	SourceRoot   string
	FollowerRoot string
}

// Root returns the root directory of the camera playing role.
func (l Layout) Root(role device.Role) string {
	if role == device.RoleFollower {
		return l.FollowerRoot
	}
	return l.SourceRoot
}

// Path returns the output file for one representation of one camera's frame.
func (l Layout) Path(role device.Role, b exposure.Bracket, r Representation, stem string) string {
	return filepath.Join(l.Root(role), b.Label(), r.Dir(), r.FileName(stem))
}

// Dirs lists every directory the layout writes into.
func (l Layout) Dirs() []string {
	var dirs []string
	for _, role := range []device.Role{device.RoleSource, device.RoleFollower} {
		for _, b := range exposure.Brackets {
			for _, r := range Representations {
				dirs = append(dirs, filepath.Join(l.Root(role), b.Label(), r.Dir()))
			}
		}
	}
	return dirs
}
