package upload

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillforge/editorhost/internal/bridge/bridgetest"
	"github.com/quillforge/editorhost/internal/engine"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

type stubLoader struct {
	file *engine.File
	err  error
}

func (s stubLoader) File(ctx context.Context) (*engine.File, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.file, nil
}

func pngLoader(data []byte) stubLoader {
	return stubLoader{file: &engine.File{Name: "photo.png", MIMEType: "image/png", Data: data}}
}

func TestAdapterUploadSuccess(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{Timeout: time.Second}, nil, nil)

	// Resolve synchronously from inside the host call, the worst case for
	// the pending-entry ordering.
	host.OnUpload = func(call bridgetest.UploadCall) {
		require.True(t, f.Resolve(call.ID, "https://cdn.example.com/photo.png", ""))
	}

	adapter := f.New(pngLoader([]byte("fake png bytes")))
	result, err := adapter.Upload(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/photo.png", result.Default)

	calls := host.UploadCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "photo.png", calls[0].FileName)
	require.Equal(t, "image/png", calls[0].MIMEType)

	decoded, err := base64.StdEncoding.DecodeString(calls[0].Base64)
	require.NoError(t, err)
	require.Equal(t, []byte("fake png bytes"), decoded)

	require.Zero(t, f.PendingCount())
}

func TestAdapterRejectsEmptyFileBeforeHost(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{}, nil, nil)

	adapter := f.New(pngLoader(nil))
	_, err := adapter.Upload(context.Background())
	require.ErrorIs(t, err, ErrEmptyFile)

	require.Empty(t, host.UploadCalls(), "empty file must be rejected before any host interaction")
	require.Zero(t, f.PendingCount())
}

func TestAdapterRejectsOversizedFile(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{MaxBytes: 4}, nil, nil)

	adapter := f.New(pngLoader([]byte("too large")))
	_, err := adapter.Upload(context.Background())
	require.ErrorIs(t, err, ErrFileTooLarge)
	require.Empty(t, host.UploadCalls())
}

func TestAdapterRejectsDisallowedMIMEType(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{AllowedMIMETypes: []string{"image/jpeg"}}, nil, nil)

	adapter := f.New(pngLoader([]byte("png")))
	_, err := adapter.Upload(context.Background())
	require.ErrorIs(t, err, ErrMIMENotAllowed)
	require.Empty(t, host.UploadCalls())
}

func TestAdapterUploadTimesOut(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{Timeout: 50 * time.Millisecond}, nil, nil)

	adapter := f.New(pngLoader([]byte("png")))

	start := time.Now()
	_, err := adapter.Upload(context.Background())
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrUploadTimeout)
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second)

	// The timeout abandons the pending entry and tells the host to stop.
	require.Zero(t, f.PendingCount())
	require.Len(t, host.CancelledIDs(), 1)

	// A late host resolution finds nothing to settle.
	require.False(t, f.Resolve(host.UploadCalls()[0].ID, "https://late.example.com", ""))
}

func TestAdapterHostError(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{Timeout: time.Second}, nil, nil)

	host.OnUpload = func(call bridgetest.UploadCall) {
		require.True(t, f.Resolve(call.ID, "", "disk full"))
	}

	adapter := f.New(pngLoader([]byte("png")))
	_, err := adapter.Upload(context.Background())
	require.Error(t, err)

	var uerr *editorhosterrors.UploadError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, "disk full", uerr.Message)
	require.Zero(t, f.PendingCount())
}

func TestAdapterRejectsConcurrentUpload(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{Timeout: time.Second}, nil, nil)
	adapter := f.New(pngLoader([]byte("png")))

	started := make(chan string, 1)
	host.OnUpload = func(call bridgetest.UploadCall) {
		started <- call.ID
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = adapter.Upload(context.Background())
	}()

	id := <-started
	_, err := adapter.Upload(context.Background())
	require.ErrorIs(t, err, ErrUploadInProgress)

	require.True(t, f.Resolve(id, "https://cdn.example.com/x", ""))
	wg.Wait()
}

func TestAdapterAbortCancelsInFlightUpload(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{Timeout: time.Second}, nil, nil)
	adapter := f.New(pngLoader([]byte("png")))

	started := make(chan struct{})
	host.OnUpload = func(bridgetest.UploadCall) {
		close(started)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := adapter.Upload(context.Background())
		errCh <- err
	}()

	<-started
	adapter.Abort()

	require.ErrorIs(t, <-errCh, ErrUploadCancelled)
	require.Zero(t, f.PendingCount())
	require.Len(t, host.CancelledIDs(), 1)

	// The adapter is reusable after an abort.
	host.OnUpload = func(call bridgetest.UploadCall) {
		require.True(t, f.Resolve(call.ID, "https://cdn.example.com/second", ""))
	}
	result, err := adapter.Upload(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/second", result.Default)
}

func TestAdapterCallerCancellationNotifiesHost(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{Timeout: time.Minute}, nil, nil)
	adapter := f.New(pngLoader([]byte("png")))

	started := make(chan struct{})
	host.OnUpload = func(bridgetest.UploadCall) {
		close(started)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := adapter.Upload(ctx)
		errCh <- err
	}()

	<-started
	cancel()

	require.ErrorIs(t, <-errCh, ErrUploadCancelled)
	require.Zero(t, f.PendingCount())
	// The host is told to stop working on the abandoned upload, the same
	// courtesy Abort and the timeout extend.
	require.Len(t, host.CancelledIDs(), 1)
	require.Equal(t, host.UploadCalls()[0].ID, host.CancelledIDs()[0])
}

func TestAdapterAbortWithoutUploadIsNoOp(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{}, nil, nil)
	adapter := f.New(pngLoader([]byte("png")))

	adapter.Abort()
	adapter.Abort()

	require.Empty(t, host.CancelledIDs())
	require.Zero(t, f.PendingCount())
}

func TestAdapterAbortNeverCancelsSuccessor(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{Timeout: time.Second}, nil, nil)
	adapter := f.New(pngLoader([]byte("png")))

	started := make(chan struct{})
	host.OnUpload = func(bridgetest.UploadCall) {
		select {
		case <-started:
		default:
			close(started)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := adapter.Upload(context.Background())
		errCh <- err
	}()

	<-started
	adapter.Abort()
	require.ErrorIs(t, <-errCh, ErrUploadCancelled)

	// Start a second upload, then abort again. Only the second id may be
	// cancelled; the first was already settled.
	host.OnUpload = func(bridgetest.UploadCall) {}
	go func() {
		_, err := adapter.Upload(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return f.PendingCount() == 1
	}, time.Second, 5*time.Millisecond)

	adapter.Abort()
	require.ErrorIs(t, <-errCh, ErrUploadCancelled)

	cancels := host.CancelledIDs()
	require.Len(t, cancels, 2)
	require.NotEqual(t, cancels[0], cancels[1])
}

func TestFactoryResolveUnknownID(t *testing.T) {
	t.Parallel()

	f := NewFactory("ed-1", bridgetest.New(), Settings{}, nil, nil)
	require.False(t, f.Resolve("ed-1-999", "https://x", ""))
}

func TestAdapterLoaderError(t *testing.T) {
	t.Parallel()

	host := bridgetest.New()
	f := NewFactory("ed-1", host, Settings{}, nil, nil)

	adapter := f.New(stubLoader{err: context.DeadlineExceeded})
	_, err := adapter.Upload(context.Background())

	var uerr *editorhosterrors.UploadError
	require.ErrorAs(t, err, &uerr)
	require.Empty(t, host.UploadCalls())
}
