// server/internal/service/prescriptions.go
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"mediradar-api-server/internal/metrics"
	"mediradar-api-server/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPrescriptionBytes caps uploaded prescription files.
const MaxPrescriptionBytes = 5 << 20

var prescriptionTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"application/pdf": "pdf",
}

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, body io.Reader, objectKey, contentType string) (string, error)
}

type PrescriptionService struct {
	requests *RequestService
	store    store.RequestStore
	uploader Uploader
	recorder Recorder
	log      *zap.Logger
}

func NewPrescriptionService(requests *RequestService, s store.RequestStore, uploader Uploader, recorder Recorder, log *zap.Logger) *PrescriptionService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &PrescriptionService{requests: requests, store: s, uploader: uploader, recorder: recorder, log: log}
}

// Upload stores a prescription image for the request behind token and records its URL.
// The file type is sniffed from content, never taken from the client.
func (s *PrescriptionService) Upload(ctx context.Context, token string, data []byte) (string, error) {
	if s.uploader == nil {
		return "", ErrUploadsDisabled
	}
	r, err := s.requests.Lookup(ctx, token)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrInvalidPayload
	}
	if len(data) > MaxPrescriptionBytes {
		return "", ErrPayloadTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := prescriptionTypes[contentType]
	if !ok {
		return "", ErrUnsupportedFile
	}

	key := fmt.Sprintf("prescriptions/%s/%s.%s", r.ID, uuid.NewString(), ext)
	url, err := s.uploader.Upload(ctx, bytes.NewReader(data), key, contentType)
	if err != nil {
		return "", fmt.Errorf("upload prescription: %w", err)
	}
	if err := s.store.SetPrescriptionImage(ctx, r.ID, url); err != nil {
		return "", fmt.Errorf("store prescription url: %w", notFound(err))
	}

	s.recorder.Event(metrics.EventPrescriptionPut)
	s.log.Info("prescription uploaded", zap.String("request_id", r.ID), zap.String("key", key))
	return url, nil
}
