package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/domain"
	"github.com/asclep-health/asclep/internal/domain/prescription"
	"github.com/asclep-health/asclep/pkg/blob"
	"github.com/asclep-health/asclep/pkg/metrics"
)

const maxPrescriptionSize = 10 << 20 // 10 MiB

var allowedPrescriptionTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

type PrescriptionService struct {
	repo         prescription.Repository
	store        blob.Store
	activity     *ActivityService
	metrics      *metrics.Collector
	log          *zap.Logger
	signedURLTTL time.Duration
}

func NewPrescriptionService(
	repo prescription.Repository,
	store blob.Store,
	activity *ActivityService,
	m *metrics.Collector,
	log *zap.Logger,
	signedURLTTL time.Duration,
) *PrescriptionService {
	if signedURLTTL <= 0 {
		signedURLTTL = 15 * time.Minute
	}
	return &PrescriptionService{
		repo:         repo,
		store:        store,
		activity:     activity,
		metrics:      m,
		log:          log,
		signedURLTTL: signedURLTTL,
	}
}

// Upload stores the document bytes in the blob store and records its
// metadata. The object key is namespaced per user and never derived from
// the client-supplied filename alone.
func (s *PrescriptionService) Upload(ctx context.Context, cmd *prescription.UploadPrescriptionCommand) (*prescription.Prescription, error) {
	if _, ok := allowedPrescriptionTypes[cmd.ContentType]; !ok {
		return nil, prescription.ErrUnsupportedType
	}
	if len(cmd.Data) == 0 {
		return nil, &ValidationError{Fields: []string{"file is empty"}}
	}
	if len(cmd.Data) > maxPrescriptionSize {
		return nil, prescription.ErrFileTooLarge
	}

	filename := sanitizeFilename(cmd.Filename)
	key := fmt.Sprintf("prescriptions/%s/%s-%s", cmd.UserID, uuid.NewString(), filename)

	if err := s.store.Put(ctx, key, cmd.ContentType, cmd.Data); err != nil {
		return nil, fmt.Errorf("storing prescription object: %w", err)
	}

	p := &prescription.Prescription{
		UserID:      cmd.UserID,
		Filename:    filename,
		ObjectKey:   key,
		ContentType: cmd.ContentType,
		SizeBytes:   int64(len(cmd.Data)),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		// Orphaned objects are cheaper than dangling rows; best-effort cleanup.
		if derr := s.store.Delete(ctx, key); derr != nil {
			s.log.Warn("orphaned prescription object after failed insert",
				zap.String("key", key), zap.Error(derr))
		}
		return nil, fmt.Errorf("creating prescription record: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PrescriptionsUploaded.Inc()
	}
	if s.activity != nil {
		pid := p.ID
		s.activity.Record(&domain.Activity{
			UserID:         p.UserID,
			Type:           domain.ActivityPrescriptionUploaded,
			Description:    fmt.Sprintf("Uploaded prescription %s", p.Filename),
			PrescriptionID: &pid,
		})
	}

	s.log.Info("prescription uploaded",
		zap.String("prescription_id", p.ID.String()),
		zap.String("user_id", p.UserID.String()),
		zap.Int64("size_bytes", p.SizeBytes),
	)
	return p, nil
}

func (s *PrescriptionService) List(ctx context.Context, userID uuid.UUID) ([]*prescription.Prescription, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *PrescriptionService) Get(ctx context.Context, id, userID uuid.UUID) (*prescription.Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, prescription.ErrPrescriptionNotFound
	}
	return p, nil
}

// DownloadURL mints a short-lived signed URL for the stored document.
func (s *PrescriptionService) DownloadURL(ctx context.Context, id, userID uuid.UUID) (string, error) {
	p, err := s.Get(ctx, id, userID)
	if err != nil {
		return "", err
	}
	return s.store.SignedURL(p.ObjectKey, s.signedURLTTL)
}

func (s *PrescriptionService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	p, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("deleting prescription record: %w", err)
	}

	// The row is gone; a failed object delete only leaks storage.
	if err := s.store.Delete(ctx, p.ObjectKey); err != nil {
		s.log.Warn("failed to delete prescription object",
			zap.String("key", p.ObjectKey), zap.Error(err))
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." {
		name = "document"
	}
	return name
}
