package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"site-cms/pkg/apiclient"
	"site-cms/pkg/listing"
	"site-cms/pkg/models"
)

var (
	ErrTooLarge   = errors.New("file exceeds the upload limit")
	ErrEmptyBatch = errors.New("no files to upload")
)

const (
	PendingMediaPrefix = "/api/media/pending/"
	uploadFailed       = "Upload failed. Please try again."
	refreshTimeout     = 30 * time.Second
)

// MediaBackend is the part of the REST client the library needs.
type MediaBackend interface {
	ListMedia(ctx context.Context, cred apiclient.Credential) ([]models.MediaItem, error)
	UploadMedia(ctx context.Context, cred apiclient.Credential, file apiclient.UploadFile) ([]models.MediaItem, error)
	UploadMediaMulti(ctx context.Context, cred apiclient.Credential, files []apiclient.UploadFile) ([]models.MediaItem, error)
	DeleteMedia(ctx context.Context, cred apiclient.Credential, id string) error
}

// PendingFile is a file selected for upload.
type PendingFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// TooLargeError names the file that failed the pre-flight size guard.
type TooLargeError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%s is %d bytes, limit is %d bytes", e.Name, e.Size, e.Limit)
}

func (e *TooLargeError) UserMessage() string {
	return fmt.Sprintf("%s is larger than %d MB", e.Name, e.Limit>>20)
}

func (e *TooLargeError) Unwrap() error { return ErrTooLarge }

// Batch is one upload request and its placeholders.
type Batch struct {
	ID    string
	Items []models.MediaItem
}

// mediaChange is a confirmation or deletion applied while a refresh was in
// flight.
type mediaChange struct {
	gen     uint64
	item    models.MediaItem
	deleted bool
}

type placeholder struct {
	item  models.MediaItem
	data  []byte
	batch string
}

// Library is the media list the admin screens show. Selected files appear
// at once as pending placeholders and are replaced by the API's records when
// the upload completes.
type Library struct {
	backend  MediaBackend
	maxBytes int64
	logger   *zap.Logger
	refresh  *listing.Debouncer
	now      func() time.Time

	mu        sync.Mutex
	confirmed []models.MediaItem
	pending   []placeholder
	failed    []models.MediaItem
	lastError string
	loaded    bool

	// gen counts local changes; changes is only kept while refreshing > 0.
	gen        uint64
	refreshing int
	changes    []mediaChange
}

func NewLibrary(backend MediaBackend, maxBytes int64, refreshDelay time.Duration, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		backend:  backend,
		maxBytes: maxBytes,
		logger:   logger,
		refresh:  listing.NewDebouncer(refreshDelay),
		now:      time.Now,
	}
}

// CheckSize is the pre-flight guard for a single file.
func (l *Library) CheckSize(name string, size int64) error {
	if l.maxBytes > 0 && size > l.maxBytes {
		return &TooLargeError{Name: name, Size: size, Limit: l.maxBytes}
	}
	return nil
}

// Begin validates the batch and prepends one pending placeholder per file.
// Nothing is added when any file is over the limit.
func (l *Library) Begin(files []PendingFile) (*Batch, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}
	for _, f := range files {
		if err := l.CheckSize(f.Name, int64(len(f.Data))); err != nil {
			return nil, err
		}
	}

	batch := &Batch{ID: uuid.NewString()}
	now := l.now()
	added := make([]placeholder, len(files))
	for i, f := range files {
		id := uuid.NewString()
		item := models.MediaItem{
			ID:         id,
			Name:       f.Name,
			Src:        PendingMediaPrefix + id,
			SizeKB:     sizeKB(len(f.Data)),
			UploadedAt: now,
			Type:       f.ContentType,
			IsLocal:    true,
			State:      models.UploadPending,
		}
		added[i] = placeholder{item: item, data: f.Data, batch: batch.ID}
		batch.Items = append(batch.Items, item)
	}

	l.mu.Lock()
	l.pending = append(added, l.pending...)
	l.lastError = ""
	l.mu.Unlock()
	return batch, nil
}

// Complete uploads the batch in a single request. On success the
// placeholders give way to the returned records, or to a re-fetched list when
// the API returned none. On failure they move to the failed list and
// LastError is set. There is no retry.
func (l *Library) Complete(ctx context.Context, cred apiclient.Credential, batch *Batch) error {
	files := l.batchFiles(batch.ID)
	if len(files) == 0 {
		return ErrEmptyBatch
	}

	var (
		items []models.MediaItem
		err   error
	)
	if len(files) == 1 {
		items, err = l.backend.UploadMedia(ctx, cred, files[0])
	} else {
		items, err = l.backend.UploadMediaMulti(ctx, cred, files)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := l.removePending(batch.ID)

	if err != nil {
		msg := apiclient.UserMessage(err, uploadFailed)
		for _, p := range removed {
			p.item.IsLocal = false
			p.item.State = models.UploadFailed
			p.item.Error = msg
			l.failed = append([]models.MediaItem{p.item}, l.failed...)
		}
		l.lastError = msg
		l.logger.Warn("media upload failed",
			zap.String("batch", batch.ID),
			zap.Int("files", len(removed)),
			zap.Error(err))
		return fmt.Errorf("upload batch %s: %w", batch.ID, err)
	}

	if len(items) == 0 {
		l.refresh.Trigger(func() {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			if err := l.Refresh(ctx, cred); err != nil {
				l.logger.Warn("media refresh after upload failed", zap.Error(err))
			}
		})
		return nil
	}

	confirmed := make([]models.MediaItem, 0, len(items)+len(l.confirmed))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item.IsLocal = false
		item.State = models.UploadConfirmed
		confirmed = append(confirmed, item)
		seen[item.ID] = true
		l.recordLocked(mediaChange{item: item})
	}
	for _, item := range l.confirmed {
		if !seen[item.ID] {
			confirmed = append(confirmed, item)
		}
	}
	l.confirmed = confirmed
	return nil
}

// Refresh replaces the confirmed list with the API's. Pending placeholders
// are kept, and records confirmed or deleted while the list was being fetched
// are applied on top of it.
func (l *Library) Refresh(ctx context.Context, cred apiclient.Credential) error {
	l.mu.Lock()
	start := l.gen
	l.refreshing++
	l.mu.Unlock()

	items, err := l.backend.ListMedia(ctx, cred)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshing--
	defer func() {
		if l.refreshing == 0 {
			l.changes = nil
		}
	}()
	if err != nil {
		return fmt.Errorf("refresh media: %w", err)
	}
	for i := range items {
		items[i].IsLocal = false
		items[i].State = models.UploadConfirmed
	}
	l.confirmed = l.replayLocked(items, start)
	l.loaded = true
	return nil
}

// recordLocked notes a local change for refreshes that are in flight. It
// must be called with mu held.
func (l *Library) recordLocked(c mediaChange) {
	l.gen++
	if l.refreshing == 0 {
		return
	}
	c.gen = l.gen
	l.changes = append(l.changes, c)
}

// replayLocked applies the changes made after gen start to a fetched list.
// Newly confirmed records that the fetch missed go first, as Complete puts
// them. It must be called with mu held.
func (l *Library) replayLocked(items []models.MediaItem, start uint64) []models.MediaItem {
	var added []models.MediaItem
	for _, c := range l.changes {
		if c.gen <= start {
			continue
		}
		idx := slices.IndexFunc(items, func(m models.MediaItem) bool { return m.ID == c.item.ID })
		switch {
		case c.deleted && idx >= 0:
			items = slices.Delete(items, idx, idx+1)
		case c.deleted:
			added = slices.DeleteFunc(added, func(m models.MediaItem) bool { return m.ID == c.item.ID })
		case idx < 0 && !slices.ContainsFunc(added, func(m models.MediaItem) bool { return m.ID == c.item.ID }):
			added = append(added, c.item)
		}
	}
	return append(added, items...)
}

// Loaded reports whether the confirmed list was fetched at least once.
func (l *Library) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

func (l *Library) Delete(ctx context.Context, cred apiclient.Credential, id string) error {
	if err := l.backend.DeleteMedia(ctx, cred, id); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, item := range l.confirmed {
		if item.ID == id {
			l.confirmed = append(l.confirmed[:i:i], l.confirmed[i+1:]...)
			break
		}
	}
	l.recordLocked(mediaChange{item: models.MediaItem{ID: id}, deleted: true})
	return nil
}

// Items returns the visible list: pending placeholders first, then the
// confirmed records.
func (l *Library) Items() []models.MediaItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.MediaItem, 0, len(l.pending)+len(l.confirmed))
	for _, p := range l.pending {
		out = append(out, p.item)
	}
	return append(out, l.confirmed...)
}

func (l *Library) Failed() []models.MediaItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.MediaItem(nil), l.failed...)
}

// Dismiss drops a failed record. It reports whether the record existed.
func (l *Library) Dismiss(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, item := range l.failed {
		if item.ID == id {
			l.failed = append(l.failed[:i:i], l.failed[i+1:]...)
			if len(l.failed) == 0 {
				l.lastError = ""
			}
			return true
		}
	}
	return false
}

func (l *Library) LastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastError
}

// Pending returns the bytes of a placeholder for previews.
func (l *Library) Pending(id string) ([]byte, string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.pending {
		if p.item.ID == id {
			return p.data, p.item.Type, true
		}
	}
	return nil, "", false
}

// Close stops a scheduled refresh.
func (l *Library) Close() {
	l.refresh.Cancel()
}

// LibraryPool keeps one Library per credential so admins never see each
// other's placeholders.
type LibraryPool struct {
	backend      MediaBackend
	maxBytes     int64
	refreshDelay time.Duration
	logger       *zap.Logger

	mu   sync.Mutex
	libs map[string]*Library
}

func NewLibraryPool(backend MediaBackend, maxBytes int64, refreshDelay time.Duration, logger *zap.Logger) *LibraryPool {
	return &LibraryPool{
		backend:      backend,
		maxBytes:     maxBytes,
		refreshDelay: refreshDelay,
		logger:       logger,
		libs:         make(map[string]*Library),
	}
}

func (p *LibraryPool) For(cred apiclient.Credential) *Library {
	p.mu.Lock()
	defer p.mu.Unlock()
	lib, ok := p.libs[cred.Token]
	if !ok {
		lib = NewLibrary(p.backend, p.maxBytes, p.refreshDelay, p.logger)
		p.libs[cred.Token] = lib
	}
	return lib
}

// Drop forgets the library of a credential, on logout.
func (p *LibraryPool) Drop(cred apiclient.Credential) {
	p.mu.Lock()
	lib, ok := p.libs[cred.Token]
	delete(p.libs, cred.Token)
	p.mu.Unlock()
	if ok {
		lib.Close()
	}
}

func (p *LibraryPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for token, lib := range p.libs {
		lib.Close()
		delete(p.libs, token)
	}
}

func (l *Library) batchFiles(batchID string) []apiclient.UploadFile {
	l.mu.Lock()
	defer l.mu.Unlock()
	var files []apiclient.UploadFile
	for _, p := range l.pending {
		if p.batch != batchID {
			continue
		}
		files = append(files, apiclient.UploadFile{
			Name:        p.item.Name,
			ContentType: p.item.Type,
			Body:        bytes.NewReader(p.data),
		})
	}
	return files
}

// removePending must be called with mu held.
func (l *Library) removePending(batchID string) []placeholder {
	var removed []placeholder
	kept := l.pending[:0:0]
	for _, p := range l.pending {
		if p.batch == batchID {
			removed = append(removed, p)
			continue
		}
		kept = append(kept, p)
	}
	l.pending = kept
	return removed
}

// FilterMedia applies the media table's search, type filter and sort.
// Sort keys are name, size and date; date is the default.
func FilterMedia(items []models.MediaItem, q listing.Query) []models.MediaItem {
	filtered := listing.Filter(items, q.Search,
		func(m models.MediaItem) []string { return []string{m.Name} },
		listing.Equals(q.Type, models.MediaItem.Category),
	)

	var cmp listing.Comparator[models.MediaItem]
	switch strings.ToLower(q.SortBy) {
	case "name":
		cmp = listing.ByString(func(m models.MediaItem) string { return m.Name })
	case "size":
		cmp = listing.ByNumber(func(m models.MediaItem) float64 { return m.SizeKB })
	default:
		cmp = listing.ByTime(func(m models.MediaItem) time.Time { return m.UploadedAt })
	}
	return listing.Sort(filtered, cmp, q.Direction)
}

func sizeKB(n int) float64 {
	return math.Round(float64(n)/1024*10) / 10
}
