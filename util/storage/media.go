package storage

import (
	"github.com/bwise1/bookgroups/config"
	"github.com/bwise1/bookgroups/util"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/pkg/errors"
)

// Transformations applied to delivered images.
const (
	AvatarTransformation = "c_fill,g_face,h_96,w_96"
	CoverTransformation  = "c_fill,h_240,w_160"
)

// Media turns the image references found in upstream payloads into delivery
// URLs. References that already are absolute URLs are returned as is.
type Media struct {
	cld *cloudinary.Cloudinary
}

// NewMedia returns a resolver for the configured Cloudinary cloud. Without a
// cloud name only absolute URLs resolve.
func NewMedia(cfg *config.Config) (*Media, error) {
	if cfg.CloudinaryCloudName == "" {
		return &Media{}, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, errors.Wrap(err, "init cloudinary")
	}
	cld.Config.URL.Secure = true
	return &Media{cld: cld}, nil
}

// Avatar resolves a member photo reference.
func (m *Media) Avatar(ref string) string {
	return m.resolve(ref, AvatarTransformation)
}

// Cover resolves a book cover reference.
func (m *Media) Cover(ref string) string {
	return m.resolve(ref, CoverTransformation)
}

func (m *Media) resolve(ref, transformation string) string {
	if !util.NotBlank(ref) {
		return ""
	}
	if util.IsURL(ref) {
		return ref
	}
	if m == nil || m.cld == nil {
		return ""
	}

	img, err := m.cld.Image(ref)
	if err != nil {
		return ""
	}
	img.Transformation = transformation
	u, err := img.String()
	if err != nil {
		return ""
	}
	return u
}
