/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package media turns uploaded charity pictures into fixed-size variants
// and stores them in an S3 compatible bucket.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"charity-backend-go/internal/models"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

var ErrInvalidImage = errors.New("invalid image")

const (
	OriginalWidth  = 1024
	OriginalHeight = 600
	ThumbWidth     = 400
	ThumbHeight    = 240

	jpegQuality  = 85
	sharpenSigma = 0.4
	contentType  = "image/jpeg"
	extension    = ".jpg"

	originalsPrefix = "charities/originals"
	thumbsPrefix    = "charities/thumbs"
)

// Variant is one encoded rendition of an uploaded image.
type Variant struct {
	Data   []byte
	Width  int
	Height int
}

// Processed holds both renditions of an uploaded image.
type Processed struct {
	Original Variant
	Thumb    Variant
}

// Process decodes an image (jpeg, png, gif or webp), honours EXIF
// orientation and renders the cover-cropped original and thumbnail.
func Process(r io.Reader) (*Processed, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	original, err := render(img, OriginalWidth, OriginalHeight)
	if err != nil {
		return nil, err
	}
	thumb, err := render(img, ThumbWidth, ThumbHeight)
	if err != nil {
		return nil, err
	}

	return &Processed{Original: *original, Thumb: *thumb}, nil
}

func render(img image.Image, width, height int) (*Variant, error) {
	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	resized = imaging.Sharpen(resized, sharpenSigma)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	bounds := resized.Bounds()
	return &Variant{Data: buf.Bytes(), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// Service processes images and uploads both renditions.
type Service struct {
	uploader Uploader
}

func NewService(uploader Uploader) *Service {
	return &Service{uploader: uploader}
}

// Store processes one upload and returns the stored image description.
func (s *Service) Store(ctx context.Context, r io.Reader) (*models.CharityImage, error) {
	processed, err := Process(r)
	if err != nil {
		return nil, err
	}

	originalURL, err := s.uploader.Upload(ctx, originalsPrefix, extension, contentType, processed.Original.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload original image: %w", err)
	}
	thumbURL, err := s.uploader.Upload(ctx, thumbsPrefix, extension, contentType, processed.Thumb.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload thumbnail: %w", err)
	}

	zap.L().Info("Stored charity image",
		zap.String("original", originalURL),
		zap.String("thumb", thumbURL),
		zap.Int("original_bytes", len(processed.Original.Data)),
		zap.Int("thumb_bytes", len(processed.Thumb.Data)))

	return &models.CharityImage{
		OriginalURL:  originalURL,
		ThumbURL:     thumbURL,
		OriginalSize: [2]int{processed.Original.Width, processed.Original.Height},
		ThumbSize:    [2]int{processed.Thumb.Width, processed.Thumb.Height},
	}, nil
}

// Discard deletes both renditions of a stored image.
func (s *Service) Discard(ctx context.Context, img models.CharityImage) error {
	var errs []error
	for _, url := range []string{img.OriginalURL, img.ThumbURL} {
		if err := s.uploader.Delete(ctx, url); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
