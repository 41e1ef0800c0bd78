package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	"google.golang.org/genai"
)

// VideoModel uploads whole videos through the Gemini Files API and references
// them in generate calls.
type VideoModel struct {
	client *genai.Client
}

type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint; empty uses the public API.
	BaseURL string
}

func NewVideoModel(ctx context.Context, cfg Config) (*VideoModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &VideoModel{client: client}, nil
}

func (m *VideoModel) Upload(ctx context.Context, path, mimeType string) (port.RemoteFile, error) {
	f, err := m.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return port.RemoteFile{}, err
	}
	return toRemoteFile(f), nil
}

func (m *VideoModel) Status(ctx context.Context, name string) (port.RemoteFile, error) {
	f, err := m.client.Files.Get(ctx, name, nil)
	if err != nil {
		return port.RemoteFile{}, err
	}
	return toRemoteFile(f), nil
}

func (m *VideoModel) Delete(ctx context.Context, name string) error {
	_, err := m.client.Files.Delete(ctx, name, nil)
	return err
}

func (m *VideoModel) GenerateFromFile(ctx context.Context, model, system, prompt string, file port.RemoteFile) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, file.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := m.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	// Empty text is returned as is; the caller's parser rejects it.
	return resp.Text(), nil
}

func toRemoteFile(f *genai.File) port.RemoteFile {
	if f == nil {
		return port.RemoteFile{}
	}
	rf := port.RemoteFile{
		Name:     f.Name,
		URI:      f.URI,
		MIMEType: f.MIMEType,
		State:    toState(f.State),
	}
	if f.Error != nil {
		rf.FailureReason = f.Error.Message
	}
	return rf
}

func toState(s genai.FileState) port.RemoteFileState {
	switch s {
	case genai.FileStateActive:
		return port.RemoteFileActive
	case genai.FileStateFailed:
		return port.RemoteFileFailed
	}
	return port.RemoteFileProcessing
}
