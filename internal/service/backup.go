package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"gradebook/internal/config"
	"gradebook/internal/database"
	"gradebook/internal/errs"
	"gradebook/internal/storage"
)

const (
	backupPrefix      = "backups"
	backupContentType = "application/vnd.sqlite3"
	backupTimeLayout  = "20060102T150405.000Z"

	// LatestBackupKey asks Restore for the newest snapshot of the configured
	// instance.
	LatestBackupKey = "latest"
)

var ErrSnapshotEmpty = errors.New("snapshot is empty")

// Backup describes one uploaded snapshot.
type Backup struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url,omitempty"`
	// Pruned lists older snapshots removed by retention after this upload.
	Pruned []string `json:"pruned,omitempty"`
}

// HandleProvider is the part of the lifecycle the backup service needs.
type HandleProvider interface {
	StorageHandle() (database.Handle, error)
	InstanceID() string
}

type BackupService interface {
	// Backup uploads a consistent snapshot of the database. With retention
	// enabled it then deletes this instance's snapshots beyond the newest n;
	// a failed prune is reported even though the upload succeeded.
	Backup(ctx context.Context) (*Backup, error)

	// Latest presigns a download URL for this instance's newest snapshot.
	Latest(ctx context.Context, expiry time.Duration) (*Backup, error)
}

type backupService struct {
	store  storage.Storage
	handle HandleProvider
	now    func() time.Time
	retain int
}

type BackupOption func(*backupService)

// WithRetention keeps the newest n snapshots per instance; n <= 0 keeps all.
func WithRetention(n int) BackupOption {
	return func(s *backupService) { s.retain = n }
}

func NewBackupService(store storage.Storage, handle HandleProvider, opts ...BackupOption) BackupService {
	s := &backupService{store: store, handle: handle, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func backupDir(instanceID string) string {
	return path.Join(backupPrefix, instanceID) + "/"
}

func (s *backupService) Backup(ctx context.Context) (*Backup, error) {
	h, err := s.handle.StorageHandle()
	if err != nil {
		return nil, err
	}
	snap, err := h.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	if len(snap) == 0 {
		return nil, ErrSnapshotEmpty
	}

	instanceID := s.handle.InstanceID()
	createdAt := s.now().UTC()
	key := backupDir(instanceID) + createdAt.Format(backupTimeLayout) + ".sqlite"

	info, err := s.store.Put(ctx, key, bytes.NewReader(snap), storage.PutObjectOptions{
		Size:        int64(len(snap)),
		ContentType: backupContentType,
		Metadata: map[string]string{
			"target":          string(h.Target()),
			"app-instance-id": instanceID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload snapshot: %w", err)
	}

	out := &Backup{Key: info.Key, Size: info.Size, CreatedAt: createdAt}
	if s.retain > 0 {
		out.Pruned, err = s.prune(ctx, instanceID)
		if err != nil {
			return nil, fmt.Errorf("prune backups after %s: %w", info.Key, err)
		}
	}
	return out, nil
}

func (s *backupService) prune(ctx context.Context, instanceID string) ([]string, error) {
	objs, err := s.store.List(ctx, backupDir(instanceID))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if len(objs) <= s.retain {
		return nil, nil
	}

	var pruned []string
	for _, obj := range objs[:len(objs)-s.retain] {
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			return pruned, fmt.Errorf("delete %s: %w", obj.Key, err)
		}
		pruned = append(pruned, obj.Key)
	}
	return pruned, nil
}

func (s *backupService) Latest(ctx context.Context, expiry time.Duration) (*Backup, error) {
	instanceID := s.handle.InstanceID()
	if instanceID == "" {
		return nil, errs.NotInitialized("latest backup")
	}

	objs, err := s.store.List(ctx, backupDir(instanceID))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if len(objs) == 0 {
		return nil, errs.NotFound("latest backup", "backup", instanceID)
	}

	// Keys embed a sortable timestamp.
	latest := objs[len(objs)-1]
	url, err := s.store.PresignGet(ctx, latest.Key, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign backup: %w", err)
	}
	return &Backup{Key: latest.Key, Size: latest.Size, CreatedAt: latest.LastModified, URL: url}, nil
}

// Restore downloads the snapshot stored under key and installs it as the
// database selected by cfg. It must run before storage is initialized.
// LatestBackupKey resolves to the newest snapshot of cfg.InstanceID.
func Restore(ctx context.Context, store storage.Storage, cfg config.StorageConfig, key string) (*Backup, error) {
	if key == LatestBackupKey {
		if cfg.InstanceID == "" {
			return nil, errs.Validation("backup", "instance_id", "is required to restore the latest backup")
		}
		objs, err := store.List(ctx, backupDir(cfg.InstanceID))
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		if len(objs) == 0 {
			return nil, errs.NotFound("restore backup", "backup", cfg.InstanceID)
		}
		key = objs[len(objs)-1].Key
	}

	rc, info, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download snapshot: %w", err)
	}
	defer rc.Close()

	snap, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(snap) == 0 {
		return nil, ErrSnapshotEmpty
	}
	if err := database.Restore(ctx, cfg, snap); err != nil {
		return nil, fmt.Errorf("install snapshot: %w", err)
	}
	return &Backup{Key: key, Size: int64(len(snap)), CreatedAt: info.LastModified}, nil
}
