package usecase

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/totegamma/where/internal/domain"
)

// uploadRecord stores any identifiable record as "<kind>-<id>.json".
func uploadRecord[T domain.Uploadable](ctx context.Context, store BlobStore, record T) (domain.Blob, error) {
	if record.UploadID() == "" {
		return domain.Blob{}, domain.ValidationError{Field: "id", Reason: "must not be empty"}
	}

	body, err := json.Marshal(record)
	if err != nil {
		return domain.Blob{}, errors.Wrapf(err, "marshal %s", record.UploadKind())
	}

	return store.Upload(ctx, domain.UploadFileName(record), body)
}
