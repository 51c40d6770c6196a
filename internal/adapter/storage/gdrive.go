package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/semmidev/archivist/internal/config"
	"github.com/semmidev/archivist/internal/domain"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(ctx context.Context, cfg *config.GDriveConfig) (*GDriveStorage, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

func (g *GDriveStorage) find(ctx context.Context, name string) (*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		g.folderID, strings.ReplaceAll(name, "'", `\'`))

	fileList, err := g.service.Files.List().
		Q(query).
		Fields("files(id, name, size, md5Checksum)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	if len(fileList.Files) == 0 {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrObjectNotFound)
	}
	return fileList.Files[0], nil
}

// Stat reports size and md5Checksum; Drive never returns multipart checksums.
func (g *GDriveStorage) Stat(ctx context.Context, name string) (*domain.RemoteObject, error) {
	file, err := g.find(ctx, name)
	if err != nil {
		return nil, err
	}
	return &domain.RemoteObject{
		Name:     file.Name,
		Size:     file.Size,
		Checksum: file.Md5Checksum,
	}, nil
}

func (g *GDriveStorage) Upload(ctx context.Context, localPath, name string, metadata map[string]string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileMetadata := &drive.File{
		Name:          name,
		Parents:       []string{g.folderID},
		AppProperties: metadata,
	}

	_, err = g.service.Files.Create(fileMetadata).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return nil
}

func (g *GDriveStorage) Delete(ctx context.Context, name string) error {
	file, err := g.find(ctx, name)
	if err != nil {
		return err
	}

	if err := g.service.Files.Delete(file.Id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}
