package port

import "context"

// InlineImage is an image sent by value inside a request.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// FrameModel is a multimodal endpoint that takes inline images.
type FrameModel interface {
	GenerateFromImages(ctx context.Context, model, system, prompt string, images []InlineImage) (string, error)
}

type RemoteFileState string

const (
	RemoteFileProcessing RemoteFileState = "PROCESSING"
	RemoteFileActive     RemoteFileState = "ACTIVE"
	RemoteFileFailed     RemoteFileState = "FAILED"
)

type RemoteFile struct {
	Name          string
	URI           string
	MIMEType      string
	State         RemoteFileState
	FailureReason string
}

// VideoModel is a multimodal endpoint that ingests uploaded files
// asynchronously before they can be referenced.
type VideoModel interface {
	Upload(ctx context.Context, path, mimeType string) (RemoteFile, error)
	Status(ctx context.Context, name string) (RemoteFile, error)
	Delete(ctx context.Context, name string) error
	GenerateFromFile(ctx context.Context, model, system, prompt string, file RemoteFile) (string, error)
}
