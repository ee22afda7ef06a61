package migration

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/intake"
	"github.com/sparrowhealth/clinic-platform/pkg/longterm"
	"github.com/sparrowhealth/clinic-platform/pkg/storage"
)

// echoSourceField is the echo-form key carrying the echo video reference.
const echoSourceField = "source"

// EncodingWriter persists the destination-to-source path mapping.
type EncodingWriter interface {
	SaveEncodings(ctx context.Context, encodings []longterm.Encoding) error
}

// Resolver copies every binary referenced by a submission into long-term
// storage under an opaque content name and rewrites the submission's
// references in place. The original source objects are never touched, so a
// failed resolve can always be re-run from scratch.
type Resolver struct {
	store      storage.ObjectStore
	encodings  EncodingWriter
	rootPrefix string
}

func NewResolver(store storage.ObjectStore, encodings EncodingWriter, rootPrefix string) *Resolver {
	return &Resolver{store: store, encodings: encodings, rootPrefix: rootPrefix}
}

// Resolve processes all attachments plus the echo payload, fail-fast: the
// first copy error aborts the whole call and nothing is persisted to the
// encoding store. Returns the number of assets resolved.
func (r *Resolver) Resolve(ctx context.Context, submission *intake.Submission) (int, error) {
	var batch []longterm.Encoding

	attachments, err := submission.AttachmentList()
	if err != nil {
		return 0, fmt.Errorf("decoding attachments: %w", err)
	}

	for i := range attachments {
		source := attachments[i].Path
		if source == "" {
			continue
		}

		destination := r.destinationFor(source)
		if err := r.store.Copy(ctx, source, destination); err != nil {
			return 0, fmt.Errorf("resolving attachment %s: %w", source, err)
		}
		url, err := r.store.PresignedURL(ctx, destination)
		if err != nil {
			return 0, fmt.Errorf("signing %s: %w", destination, err)
		}

		attachments[i].Path = destination
		attachments[i].Name = path.Base(destination)
		attachments[i].URL = url
		batch = append(batch, longterm.Encoding{Path: destination, Ref: source})
	}

	if err := submission.SetAttachmentList(attachments); err != nil {
		return 0, fmt.Errorf("encoding attachments: %w", err)
	}

	echoEncoding, err := r.resolveEchoSource(ctx, submission)
	if err != nil {
		return 0, err
	}
	if echoEncoding != nil {
		batch = append(batch, *echoEncoding)
	}

	if err := r.encodings.SaveEncodings(ctx, batch); err != nil {
		return 0, fmt.Errorf("persisting encoding batch: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"patient_id": submission.PatientID,
		"assets":     len(batch),
	}).Info("Assets resolved")

	return len(batch), nil
}

// resolveEchoSource re-paths the echo binary payload when the echo form
// carries one.
func (r *Resolver) resolveEchoSource(ctx context.Context, submission *intake.Submission) (*longterm.Encoding, error) {
	if submission.Echo == nil {
		return nil, nil
	}
	raw, ok := submission.Echo[echoSourceField].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	source, _ := raw["path"].(string)
	if source == "" {
		return nil, nil
	}

	destination := r.destinationFor(source)
	if err := r.store.Copy(ctx, source, destination); err != nil {
		return nil, fmt.Errorf("resolving echo payload %s: %w", source, err)
	}
	url, err := r.store.PresignedURL(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("signing %s: %w", destination, err)
	}

	raw["path"] = destination
	raw["url"] = url
	submission.Echo[echoSourceField] = raw

	return &longterm.Encoding{Path: destination, Ref: source}, nil
}

// destinationFor mints an opaque destination name under the long-term root,
// keeping the source extension so viewers can type the content.
func (r *Resolver) destinationFor(source string) string {
	return path.Join(r.rootPrefix, uuid.New().String()+path.Ext(source))
}
