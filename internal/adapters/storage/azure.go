package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// AzureStorage keeps a GeoJSON library in an Azure Blob Storage container.
type AzureStorage struct {
	client    *azblob.Client
	container string
	prefix    string
}

var _ output.ObjectStorage = (*AzureStorage)(nil)

// AzureConfig holds Azure Blob Storage configuration. A connection string
// takes precedence over account name and key.
type AzureConfig struct {
	Container        string
	AccountName      string
	AccountKey       string
	ConnectionString string
	Prefix           string
}

// NewAzureStorage creates a new Azure Blob Storage adapter.
func NewAzureStorage(cfg AzureConfig) (*AzureStorage, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("azure container: %w", domain.ErrInvalidInput)
	}

	client, err := newAzureClient(cfg)
	if err != nil {
		return nil, &domain.StorageError{Operation: "connect", Key: cfg.Container, Err: err}
	}
	return &AzureStorage{client: client, container: cfg.Container, prefix: cfg.Prefix}, nil
}

func newAzureClient(cfg AzureConfig) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, err
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	return azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
}

// List returns the GeoJSON blobs under the prefix.
func (s *AzureStorage) List(ctx context.Context) ([]output.StorageObject, error) {
	var objects []output.StorageObject

	prefix := objectName(s.prefix, "")
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &domain.StorageError{Operation: "list", Key: s.container, Err: azureError(err)}
		}
		for _, item := range page.Segment.BlobItems {
			if o, ok := s.toObject(item); ok {
				objects = append(objects, o)
			}
		}
	}
	return objects, nil
}

func (s *AzureStorage) toObject(item *container.BlobItem) (output.StorageObject, bool) {
	if item == nil || item.Name == nil {
		return output.StorageObject{}, false
	}
	key, ok := libraryKey(s.prefix, *item.Name)
	if !ok {
		return output.StorageObject{}, false
	}

	o := output.StorageObject{Key: key}
	if p := item.Properties; p != nil {
		if p.ContentLength != nil {
			o.Size = *p.ContentLength
		}
		if p.LastModified != nil {
			o.LastModified = p.LastModified.Unix()
		}
		if p.ETag != nil {
			o.ETag = string(*p.ETag)
		}
	}
	return o, true
}

// GetReader returns the body of the blob at key.
func (s *AzureStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, objectName(s.prefix, key), nil)
	if err != nil {
		return nil, &domain.StorageError{Operation: "get", Key: key, Err: azureError(err)}
	}
	return resp.Body, nil
}

// Exists reads the blob properties without downloading content.
func (s *AzureStorage) Exists(ctx context.Context, key string) (bool, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(objectName(s.prefix, key))
	_, err := blobClient.GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if err = azureError(err); domain.IsNotFound(err) {
		return false, nil
	}
	return false, &domain.StorageError{Operation: "exists", Key: key, Err: err}
}

// Put uploads a GeoJSON document as a block blob.
func (s *AzureStorage) Put(ctx context.Context, key string, body io.Reader, _ int64) error {
	contentType := geoJSONContentType
	_, err := s.client.UploadStream(ctx, s.container, objectName(s.prefix, key), body, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return &domain.StorageError{Operation: "put", Key: key, Err: azureError(err)}
	}
	return nil
}

// azureError tags missing blobs and containers with domain.ErrNotFound and
// everything else with domain.ErrStorageUnavailable.
func azureError(err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
