// Package media stores uploaded images on an external host and derives
// the public ids used to delete them again.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"inkpost/config"
)

const (
	AvatarFolder    = "user_avatar"
	PostImageFolder = "post_images"
)

// ErrNotConfigured is returned by Unconfigured for every call.
var ErrNotConfigured = errors.New("media host is not configured")

// Host is an image host. Upload returns the public URL of the stored file.
type Host interface {
	Upload(ctx context.Context, file io.Reader, folder string) (string, error)
	Delete(ctx context.Context, publicID string) error
}

// PublicIDFromURL derives the host id of an image from its public URL:
// the folder, a slash, and the file name up to its first dot.
func PublicIDFromURL(folder, imageURL string) string {
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(p)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return folder + "/" + name
}

// FromConfig builds the host selected by cfg.Provider. A cloudinary
// provider without credentials yields Unconfigured, so the server still
// starts in local development.
func FromConfig(ctx context.Context, cfg config.MediaConfig) (Host, error) {
	switch cfg.Provider {
	case "cloudinary":
		if cfg.CloudinaryURL == "" {
			return Unconfigured{}, nil
		}
		return NewCloudinary(cfg.CloudinaryURL)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}
}

// Unconfigured fails every call with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Delete(context.Context, string) error {
	return ErrNotConfigured
}
