package photoadmin

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"regportal/internal/domain"
)

// Facing selects a camera.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Constraints are what the desk asks of a camera.
type Constraints struct {
	Facing Facing
	Width  int
	Height int
}

// DefaultConstraints is the front camera at 640x480.
var DefaultConstraints = Constraints{Facing: FacingUser, Width: 640, Height: 480}

// JPEGQuality is the capture encoding quality.
const JPEGQuality = 80

// Camera opens a video stream.
type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live camera feed.
type Stream interface {
	Frame() (image.Image, error)
	Close() error
}

var ErrNotImage = errors.New("please select an image file")

// EncodeFrame draws frame onto an off-screen RGBA surface and encodes it as
// a JPEG named after the student.
func EncodeFrame(frame image.Image, studentID string) (domain.Photo, error) {
	b := frame.Bounds()
	surface := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(surface, surface.Bounds(), frame, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, surface, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return domain.Photo{}, errors.Wrap(err, "encode frame")
	}
	return domain.Photo{Data: buf.Bytes(), Filename: studentID + ".jpg", ContentType: "image/jpeg"}, nil
}

// PhotoFromFile checks that data is an image and names it after the student
// with the extension matching its content.
func PhotoFromFile(data []byte, studentID string) (domain.Photo, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return domain.Photo{}, errors.Wrapf(ErrNotImage, "got %s", mt.String())
	}
	ext := mt.Extension()
	if ext == "" || ext == ".jpeg" {
		ext = ".jpg"
	}
	return domain.Photo{Data: data, Filename: studentID + ext, ContentType: mt.String()}, nil
}

// ImageFileCamera is a camera whose every frame is a still image read from
// disk. The CLI uses it where no video device exists.
type ImageFileCamera struct {
	Path string
}

func (c ImageFileCamera) Open(_ context.Context, _ Constraints) (Stream, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open frame source")
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "decode frame source")
	}
	return &stillStream{img: img}, nil
}

type stillStream struct {
	img    image.Image
	closed bool
}

func (s *stillStream) Frame() (image.Image, error) {
	if s.closed {
		return nil, errors.New("stream closed")
	}
	return s.img, nil
}

func (s *stillStream) Close() error {
	s.closed = true
	return nil
}
