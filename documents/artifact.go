package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// Artifact is a transient rendered file. It lives only for the duration of a
// download or an email send and is removed afterwards.
type Artifact struct {
	Key         string
	FileName    string
	ContentType string
	Size        int64
}

type ArtifactStore interface {
	Save(ctx context.Context, fileName string, contentType string, r io.Reader) (*Artifact, error)
	Open(ctx context.Context, a *Artifact) (io.ReadCloser, error)
	Remove(ctx context.Context, a *Artifact) error
}

// LocalArtifactStore keeps artifacts as temp files under Dir (os.TempDir when empty).
type LocalArtifactStore struct {
	Dir string
}

func NewLocalArtifactStore(dir string) *LocalArtifactStore {
	return &LocalArtifactStore{Dir: dir}
}

func (s *LocalArtifactStore) Save(_ context.Context, fileName string, contentType string, r io.Reader) (*Artifact, error) {
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.CreateTemp(s.Dir, "artifact-*-"+filepath.Base(fileName))
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, err
	}
	return &Artifact{Key: f.Name(), FileName: fileName, ContentType: contentType, Size: size}, nil
}

func (s *LocalArtifactStore) Open(_ context.Context, a *Artifact) (io.ReadCloser, error) {
	return os.Open(a.Key)
}

func (s *LocalArtifactStore) Remove(_ context.Context, a *Artifact) error {
	err := os.Remove(a.Key)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// GCSArtifactStore keeps artifacts as objects under Prefix in Bucket.
type GCSArtifactStore struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

func NewGCSArtifactStore(ctx context.Context, bucket string, prefix string, credentialsJSON string) (*GCSArtifactStore, error) {
	if bucket == "" {
		return nil, errors.New("missing GCS bucket")
	}
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSArtifactStore{Client: client, Bucket: bucket, Prefix: prefix}, nil
}

func (s *GCSArtifactStore) Save(ctx context.Context, fileName string, contentType string, r io.Reader) (*Artifact, error) {
	key := path.Join(s.Prefix, uuid.NewString(), path.Base(fileName))
	w := s.Client.Bucket(s.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	size, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("io.Copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("Writer.Close: %w", err)
	}
	return &Artifact{Key: key, FileName: fileName, ContentType: contentType, Size: size}, nil
}

func (s *GCSArtifactStore) Open(ctx context.Context, a *Artifact) (io.ReadCloser, error) {
	return s.Client.Bucket(s.Bucket).Object(a.Key).NewReader(ctx)
}

func (s *GCSArtifactStore) Remove(ctx context.Context, a *Artifact) error {
	err := s.Client.Bucket(s.Bucket).Object(a.Key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSArtifactStore) Close() error {
	return s.Client.Close()
}
