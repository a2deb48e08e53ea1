package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homeguard/internal/blobstore"
	blobMocks "homeguard/internal/blobstore/mocks"
	"homeguard/internal/model"
	"homeguard/internal/repository/memory"
	repoMocks "homeguard/internal/repository/mocks"
	"homeguard/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFileService_Upload(t *testing.T) {
	ctx := context.Background()
	stored := &model.BlobFile{ID: "f1", Filename: "1700000000000-a.txt", OwnerID: "u1", OriginalName: "a.txt"}

	tests := []struct {
		name       string
		size       int64
		nilReader  bool
		setupMocks func(mBlobs *blobMocks.MockBlobStore, mLedger *repoMocks.MockLedgerRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			size: 5,
			setupMocks: func(mBlobs *blobMocks.MockBlobStore, mLedger *repoMocks.MockLedgerRepository) {
				mBlobs.On("UploadFromStream", ctx, "a.txt", blobstore.Metadata{OwnerID: "u1", OriginalName: "a.txt", Mimetype: "text/plain"}, mock.Anything).
					Return(stored, nil)
				mLedger.On("Add", ctx, "u1", "f1").Return(nil)
			},
		},
		{
			name:       "zero size",
			size:       0,
			setupMocks: func(mBlobs *blobMocks.MockBlobStore, mLedger *repoMocks.MockLedgerRepository) {},
			wantErr:    ErrFileRequired,
		},
		{
			name:       "nil reader",
			size:       5,
			nilReader:  true,
			setupMocks: func(mBlobs *blobMocks.MockBlobStore, mLedger *repoMocks.MockLedgerRepository) {},
			wantErr:    ErrFileRequired,
		},
		{
			name: "storage not ready",
			size: 5,
			setupMocks: func(mBlobs *blobMocks.MockBlobStore, mLedger *repoMocks.MockLedgerRepository) {
				mBlobs.On("UploadFromStream", ctx, "a.txt", mock.Anything, mock.Anything).Return(nil, blobstore.ErrUnavailable)
			},
			wantErr: ErrUnavailable,
		},
		{
			name: "blob write error",
			size: 5,
			setupMocks: func(mBlobs *blobMocks.MockBlobStore, mLedger *repoMocks.MockLedgerRepository) {
				mBlobs.On("UploadFromStream", ctx, "a.txt", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
			},
			wantErrMsg: "store blob: boom",
		},
		{
			name: "ledger update fails",
			size: 5,
			setupMocks: func(mBlobs *blobMocks.MockBlobStore, mLedger *repoMocks.MockLedgerRepository) {
				mBlobs.On("UploadFromStream", ctx, "a.txt", mock.Anything, mock.Anything).Return(stored, nil)
				mLedger.On("Add", ctx, "u1", "f1").Return(errors.New("db down"))
			},
			wantErr: ErrLedgerUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mBlobs := new(blobMocks.MockBlobStore)
			mLedger := new(repoMocks.MockLedgerRepository)
			tt.setupMocks(mBlobs, mLedger)
			svc := NewFileService(mBlobs, mLedger, discardLogger())

			var r io.Reader = strings.NewReader("hello")
			if tt.nilReader {
				r = nil
			}
			f, err := svc.Upload(ctx, "u1", r, "a.txt", "text/plain", tt.size)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, f)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, "f1", f.ID)
			}
			mBlobs.AssertExpectations(t)
			mLedger.AssertExpectations(t)
		})
	}
}

func TestFileService_UploadLedgerFailureLogsOrphan(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	mBlobs := new(blobMocks.MockBlobStore)
	mLedger := new(repoMocks.MockLedgerRepository)
	mBlobs.On("UploadFromStream", ctx, "a.txt", mock.Anything, mock.Anything).Return(&model.BlobFile{ID: "orphan-1"}, nil)
	mLedger.On("Add", ctx, "u1", "orphan-1").Return(errors.New("db down"))

	_, err := NewFileService(mBlobs, mLedger, log).Upload(ctx, "u1", strings.NewReader("x"), "a.txt", "", 1)

	assert.ErrorIs(t, err, ErrLedgerUpdate)
	assert.Contains(t, buf.String(), `"file_id":"orphan-1"`)
	assert.Contains(t, buf.String(), `"user_id":"u1"`)
	mBlobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestFileService_Resolve(t *testing.T) {
	ctx := context.Background()
	ownID := uuid.NewString()
	foreignID := uuid.NewString()
	missingID := uuid.NewString()
	own := &model.BlobFile{ID: ownID, OwnerID: "u1", OriginalName: "a.txt"}
	foreign := &model.BlobFile{ID: foreignID, OwnerID: "u2", OriginalName: "b.txt"}

	tests := []struct {
		name       string
		ref        string
		setupMocks func(mBlobs *blobMocks.MockBlobStore)
		wantID     string
		wantErr    error
	}{
		{
			name: "own id",
			ref:  ownID,
			setupMocks: func(mBlobs *blobMocks.MockBlobStore) {
				mBlobs.On("FindOne", ctx, blobstore.Filter{ID: ownID}).Return(own, nil)
			},
			wantID: ownID,
		},
		{
			name: "foreign id",
			ref:  foreignID,
			setupMocks: func(mBlobs *blobMocks.MockBlobStore) {
				mBlobs.On("FindOne", ctx, blobstore.Filter{ID: foreignID}).Return(foreign, nil)
			},
			wantErr: ErrForbidden,
		},
		{
			name: "original name",
			ref:  "a.txt",
			setupMocks: func(mBlobs *blobMocks.MockBlobStore) {
				mBlobs.On("FindOne", ctx, blobstore.Filter{OwnerID: "u1", OriginalName: "a.txt"}).Return(own, nil)
			},
			wantID: ownID,
		},
		{
			name: "uuid-shaped name falls back to name lookup",
			ref:  missingID,
			setupMocks: func(mBlobs *blobMocks.MockBlobStore) {
				mBlobs.On("FindOne", ctx, blobstore.Filter{ID: missingID}).Return(nil, blobstore.ErrNotFound)
				mBlobs.On("FindOne", ctx, blobstore.Filter{OwnerID: "u1", OriginalName: missingID}).Return(nil, blobstore.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "someone else's name is not found",
			ref:  "b.txt",
			setupMocks: func(mBlobs *blobMocks.MockBlobStore) {
				mBlobs.On("FindOne", ctx, blobstore.Filter{OwnerID: "u1", OriginalName: "b.txt"}).Return(nil, blobstore.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "not ready",
			ref:  "a.txt",
			setupMocks: func(mBlobs *blobMocks.MockBlobStore) {
				mBlobs.On("FindOne", ctx, mock.Anything).Return(nil, blobstore.ErrUnavailable)
			},
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mBlobs := new(blobMocks.MockBlobStore)
			tt.setupMocks(mBlobs)
			svc := NewFileService(mBlobs, new(repoMocks.MockLedgerRepository), discardLogger()).(*fileService)

			f, err := svc.resolve(ctx, "u1", tt.ref)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, f.ID)
			}
			mBlobs.AssertExpectations(t)
		})
	}
}

func TestFileService_DeleteLedgerFailureStillSucceeds(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()
	mBlobs := new(blobMocks.MockBlobStore)
	mLedger := new(repoMocks.MockLedgerRepository)
	mBlobs.On("FindOne", ctx, blobstore.Filter{ID: id}).Return(&model.BlobFile{ID: id, OwnerID: "u1"}, nil)
	mBlobs.On("Delete", ctx, id).Return(nil)
	mLedger.On("Remove", ctx, "u1", id).Return(errors.New("db down"))

	f, err := NewFileService(mBlobs, mLedger, discardLogger()).Delete(ctx, "u1", id)

	require.NoError(t, err)
	assert.Equal(t, id, f.ID)
	mBlobs.AssertExpectations(t)
	mLedger.AssertExpectations(t)
}

// newMemoryFileService wires the real bucket over in-memory repositories and storage.
func newMemoryFileService(t *testing.T) (FileService, *memory.LedgerRepo, *storage.MemoryStorage) {
	t.Helper()
	st := storage.NewMemory()
	ledger := memory.NewLedgerRepo()
	bucket := blobstore.New(memory.NewBlobRepo(), 8, 2, nil)
	bucket.Attach(st)
	return NewFileService(bucket, ledger, discardLogger()), ledger, st
}

func TestFileService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, ledger, st := newMemoryFileService(t)
	content := strings.Repeat("0123456789", 5)

	up, err := svc.Upload(ctx, "u1", strings.NewReader(content), "notes.txt", "text/plain", int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), up.Size)

	owned, err := ledger.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{up.ID}, owned)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "notes.txt", list[0].OriginalName)

	for _, ref := range []string{up.ID, "notes.txt"} {
		rc, f, err := svc.Download(ctx, "u1", ref)
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, content, string(got))
		assert.Equal(t, "text/plain", f.Mimetype)
	}

	_, _, err = svc.Download(ctx, "u2", up.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, err = svc.Download(ctx, "u2", "notes.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Delete(ctx, "u2", up.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Delete(ctx, "u1", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())

	owned, err = ledger.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, owned)

	_, err = svc.Delete(ctx, "u1", up.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileService_DuplicateNamesResolveToOldest(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMemoryFileService(t)

	first, err := svc.Upload(ctx, "u1", strings.NewReader("first"), "same.txt", "text/plain", 5)
	require.NoError(t, err)
	second, err := svc.Upload(ctx, "u1", strings.NewReader("second"), "same.txt", "text/plain", 6)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	deleted, err := svc.Delete(ctx, "u1", "same.txt")
	require.NoError(t, err)
	assert.Equal(t, first.ID, deleted.ID)

	rc, _, err := svc.Download(ctx, "u1", "same.txt")
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "second", string(got))
}

func TestFileService_ConcurrentUploadsAllReachLedger(t *testing.T) {
	tests := []struct {
		name    string
		uploads int
	}{
		{name: "two uploads", uploads: 2},
		{name: "many uploads", uploads: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, ledger, _ := newMemoryFileService(t)

			var wg sync.WaitGroup
			errs := make(chan error, tt.uploads)
			for i := 0; i < tt.uploads; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					content := fmt.Sprintf("file-%03d", i)
					_, err := svc.Upload(ctx, "u1", strings.NewReader(content), content+".txt", "text/plain", int64(len(content)))
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			owned, err := ledger.List(ctx, "u1")
			require.NoError(t, err)
			assert.Len(t, owned, tt.uploads)

			list, err := svc.List(ctx, "u1")
			require.NoError(t, err)
			assert.Len(t, list, tt.uploads)

			ids := make(map[string]bool, len(list))
			for _, f := range list {
				ids[f.ID] = true
			}
			for _, id := range owned {
				assert.True(t, ids[id], "ledger id %s has no blob", id)
			}
		})
	}
}
