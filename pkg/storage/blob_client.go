package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"go.uber.org/zap"
)

// BlobStorageClient persists and retrieves raw report bytes.
type BlobStorageClient interface {
	UploadReport(ctx context.Context, blobPath string, data []byte, metadata map[string]string) (string, error)
	DownloadReport(ctx context.Context, blobPath string) ([]byte, error)
}

// accountSettings is the subset of an Azure storage connection string the
// client needs.
type accountSettings struct {
	name     string
	key      string
	endpoint string
}

// parseAccountSettings pulls account credentials out of a standard
// "Key=Value;Key=Value" connection string. A missing BlobEndpoint falls
// back to the public Azure endpoint for the account.
func parseAccountSettings(connectionString string) (accountSettings, error) {
	var s accountSettings
	for _, part := range strings.Split(connectionString, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		switch key {
		case "AccountName":
			s.name = value
		case "AccountKey":
			s.key = value
		case "BlobEndpoint":
			s.endpoint = strings.TrimRight(value, "/")
		}
	}
	if s.name == "" || s.key == "" {
		return accountSettings{}, fmt.Errorf("connection string must carry AccountName and AccountKey")
	}
	if s.endpoint == "" {
		s.endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", s.name)
	}
	return s, nil
}

// insecure reports whether the endpoint is plain HTTP, as local Azurite
// instances are.
func (s accountSettings) insecure() bool {
	return strings.HasPrefix(strings.ToLower(s.endpoint), "http://")
}

// AzureBlobClient stores reports in a single Azure Blob Storage container,
// creating it on first use.
type AzureBlobClient struct {
	client    *azblob.Client
	container string
	logger    *zap.Logger
	haveCont  bool
}

// NewAzureBlobClient builds a shared-key client from a connection string.
func NewAzureBlobClient(connectionString, container string, logger *zap.Logger) (*AzureBlobClient, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if container == "" {
		return nil, fmt.Errorf("container name is required")
	}

	settings, err := parseAccountSettings(connectionString)
	if err != nil {
		return nil, err
	}

	credential, err := azblob.NewSharedKeyCredential(settings.name, settings.key)
	if err != nil {
		return nil, fmt.Errorf("building shared key credential: %w", err)
	}

	var opts *azblob.ClientOptions
	if settings.insecure() {
		opts = &azblob.ClientOptions{
			ClientOptions: azcore.ClientOptions{InsecureAllowCredentialWithHTTP: true},
		}
	}

	client, err := azblob.NewClientWithSharedKeyCredential(settings.endpoint, credential, opts)
	if err != nil {
		return nil, fmt.Errorf("building blob client: %w", err)
	}

	return &AzureBlobClient{client: client, container: container, logger: logger}, nil
}

// UploadReport writes data as a JSON block blob and returns its URL.
func (a *AzureBlobClient) UploadReport(ctx context.Context, blobPath string, data []byte, metadata map[string]string) (string, error) {
	if err := a.ensureContainer(ctx); err != nil {
		return "", err
	}

	meta := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		meta[k] = to.Ptr(v)
	}

	blockBlob := a.client.ServiceClient().
		NewContainerClient(a.container).
		NewBlockBlobClient(blobPath)

	_, err := blockBlob.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata:    meta,
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr("application/json")},
	})
	if err != nil {
		a.logger.Error("Report upload failed",
			zap.String("blob_path", blobPath),
			zap.Int("size_bytes", len(data)),
			zap.Error(err))
		return "", fmt.Errorf("blob upload failed: %w", err)
	}

	a.logger.Info("Report uploaded",
		zap.String("blob_path", blobPath),
		zap.Int("size_bytes", len(data)))
	return blockBlob.URL(), nil
}

// DownloadReport reads a report blob back in full.
func (a *AzureBlobClient) DownloadReport(ctx context.Context, blobPath string) ([]byte, error) {
	if strings.TrimSpace(blobPath) == "" {
		return nil, fmt.Errorf("blob path is required")
	}

	resp, err := a.client.ServiceClient().
		NewContainerClient(a.container).
		NewBlobClient(blobPath).
		DownloadStream(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("blob download failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading blob stream: %w", err)
	}
	return data, nil
}

// ensureContainer creates the container once per client. An existing
// container is not an error.
func (a *AzureBlobClient) ensureContainer(ctx context.Context) error {
	if a.haveCont {
		return nil
	}

	if _, err := a.client.CreateContainer(ctx, a.container, nil); err != nil {
		var respErr *azcore.ResponseError
		if !errors.As(err, &respErr) || respErr.ErrorCode != "ContainerAlreadyExists" {
			return fmt.Errorf("creating container %q: %w", a.container, err)
		}
	}
	a.haveCont = true
	return nil
}
