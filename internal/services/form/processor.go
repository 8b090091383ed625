package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/phambaophuc/image-webhook/internal/models"
	"github.com/phambaophuc/image-webhook/internal/services/queue"
	"github.com/phambaophuc/image-webhook/internal/services/storage"
	"github.com/phambaophuc/image-webhook/pkg/utils"
	"go.uber.org/zap"
)

// ImageStore persists the accepted image payload.
type ImageStore interface {
	Save(ctx context.Context, data []byte) error
	Path() string
}

type Processor struct {
	store     ImageStore
	mirror    storage.Mirror
	publisher queue.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Processor)

// WithMirror uploads a copy of every saved image.
func WithMirror(m storage.Mirror) Option {
	return func(p *Processor) { p.mirror = m }
}

// WithPublisher announces every saved image.
func WithPublisher(pub queue.Publisher) Option {
	return func(p *Processor) { p.publisher = pub }
}

func NewProcessor(store ImageStore, logger *zap.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process reads the whole multipart body, validates it and saves the image.
// Validation failures come back as Rejected, decode and IO errors as Failed.
func (p *Processor) Process(ctx context.Context, r *multipart.Reader) models.Outcome {
	sub, err := readSubmission(r)
	if err != nil {
		return models.Failed(sub, err)
	}

	if sub.Status != models.StatusOK {
		return models.Rejected(sub, sub.ImgMessage)
	}
	if !sub.HasImage {
		return models.Rejected(sub, models.MessageNotAFile)
	}

	if err := p.store.Save(ctx, sub.ResImage); err != nil {
		return models.Failed(sub, err)
	}

	if sub.IDGen == "" || sub.TimeGen == "" {
		p.logger.Info("processFormData: idGen or timeGen not provided")
	}
	p.logger.Info("processFormData",
		zap.String("id_gen", sub.IDGen),
		zap.String("time_gen", sub.TimeGen))

	p.afterSave(ctx, sub)

	return models.Saved(sub)
}

// afterSave runs the optional side channels. Their failures never change
// the outcome since the local file is already in place.
func (p *Processor) afterSave(ctx context.Context, sub *models.Submission) {
	event := &models.ImageSavedEvent{
		ID:       uuid.New().String(),
		IDGen:    sub.IDGen,
		TimeGen:  sub.TimeGen,
		Path:     p.store.Path(),
		FileSize: int64(len(sub.ResImage)),
		SavedAt:  p.now(),
	}

	if info, err := utils.DescribeImage(sub.ResImage); err != nil {
		p.logger.Debug("Saved payload is not a recognized image", zap.Error(err))
	} else {
		event.Format = info.Format
		event.Width = info.Width
		event.Height = info.Height
		p.logger.Debug("Saved image",
			zap.String("format", info.Format),
			zap.Int("width", info.Width),
			zap.Int("height", info.Height))
	}

	if p.mirror != nil {
		url, err := p.mirror.Upload(ctx, sub.ResImage, p.store.Path(), sub.IDGen)
		if err != nil {
			p.logger.Warn("Failed to mirror image", zap.Error(err))
		} else {
			event.MirrorURL = url
		}
	}

	if p.publisher != nil {
		if err := p.publisher.PublishImageSaved(ctx, event); err != nil {
			p.logger.Warn("Failed to publish image saved event",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}
}

// readSubmission drains every part of r. The returned submission is non-nil
// even on error and holds whatever was read before the failure.
func readSubmission(r *multipart.Reader) (*models.Submission, error) {
	sub := &models.Submission{}

	for {
		part, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			return sub, nil
		}
		if err != nil {
			return sub, fmt.Errorf("failed to read multipart body: %w", err)
		}

		name := part.FormName()
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return sub, fmt.Errorf("failed to read part %q: %w", name, err)
		}

		switch name {
		case models.FieldStatus:
			sub.Status, err = decodeText(name, data)
		case models.FieldIDGen:
			sub.IDGen, err = decodeText(name, data)
		case models.FieldTimeGen:
			sub.TimeGen, err = decodeText(name, data)
		case models.FieldImgMessage:
			sub.ImgMessage, err = decodeText(name, data)
		case models.FieldResImage:
			sub.ResImage = data
			sub.HasImage = true
		}
		if err != nil {
			return sub, err
		}
	}
}

func decodeText(name string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("field %q is not valid UTF-8", name)
	}
	return string(data), nil
}
