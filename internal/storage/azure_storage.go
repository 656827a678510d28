package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// ImageStore offloads invoice images so uploads can carry a reference
// instead of the bytes
type ImageStore interface {
	PutImage(ctx context.Context, id string, data []byte, contentType string) (string, error)
	GetImage(ctx context.Context, ref string) ([]byte, error)
}

type azureStorage struct {
	client    *azblob.Client
	container string

	ensureOnce sync.Once
	ensureErr  error
}

// NewAzureStorage creates an ImageStore backed by an Azure Blob container
func NewAzureStorage(accountName, accountKey, container string) (ImageStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureStorage{client: client, container: container}, nil
}

func (s *azureStorage) ensureContainer(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		_, err := s.client.CreateContainer(ctx, s.container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			s.ensureErr = fmt.Errorf("create container %s: %w", s.container, err)
		}
	})
	return s.ensureErr
}

// PutImage uploads the image under the record id. Re-uploading the same id
// overwrites the blob, so retries are safe.
func (s *azureStorage) PutImage(ctx context.Context, id string, data []byte, contentType string) (string, error) {
	if err := s.ensureContainer(ctx); err != nil {
		return "", err
	}

	name := BlobName(id, contentType)
	_, err := s.client.UploadBuffer(ctx, s.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	return strings.TrimRight(s.client.URL(), "/") + "/" + s.container + "/" + name, nil
}

func (s *azureStorage) GetImage(ctx context.Context, ref string) ([]byte, error) {
	container, name, err := ParseBlobRef(ref)
	if err != nil {
		return nil, err
	}

	downloadResponse, err := s.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, retryReader); err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	return buf.Bytes(), nil
}

// BlobName derives the blob name for a record image
func BlobName(id, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	}
	return "invoices/" + id + ext
}

// ParseBlobRef splits a blob URL into container and blob name
func ParseBlobRef(ref string) (string, string, error) {
	parsedURL, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	parts := strings.SplitN(strings.TrimPrefix(parsedURL.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid blob URL: %s", ref)
	}
	return parts[0], parts[1], nil
}
