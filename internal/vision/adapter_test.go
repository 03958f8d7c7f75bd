package vision

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nova-social/nova-faces/internal/config"
)

func testAdapter() *Adapter {
	return NewAdapter(config.VisionConfig{
		ModelsDir:          "testdata/models",
		DetectionThreshold: 0.5,
		EmbeddingDim:       512,
	}, StdCodec{})
}

func TestInitializeSingleFlight(t *testing.T) {
	a := testAdapter()

	var loads int32
	a.loadFn = func() error {
		atomic.AddInt32(&loads, 1)
		time.Sleep(20 * time.Millisecond)
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = a.Initialize(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Initialize[%d]: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("load ran %d times; want 1", n)
	}
}

func TestInitializeIdempotentWhenReady(t *testing.T) {
	a := testAdapter()

	var loads int32
	a.loadFn = func() error {
		atomic.AddInt32(&loads, 1)
		return nil
	}

	for i := 0; i < 3; i++ {
		if err := a.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
	}
	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("load ran %d times; want 1", n)
	}
}

func TestInitializeFailureIsRetryable(t *testing.T) {
	a := testAdapter()

	loadErr := errors.New("weights corrupt")
	var attempts int32
	a.loadFn = func() error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return loadErr
		}
		return nil
	}

	if err := a.Initialize(context.Background()); !errors.Is(err, loadErr) {
		t.Fatalf("first Initialize = %v; want %v", err, loadErr)
	}
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("retry Initialize = %v; want nil", err)
	}
	if n := atomic.LoadInt32(&attempts); n != 2 {
		t.Errorf("load attempts = %d; want 2", n)
	}
}

func TestInitializeWaiterSeesFailure(t *testing.T) {
	a := testAdapter()

	loadErr := errors.New("no such file")
	started := make(chan struct{})
	a.loadFn = func() error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		return loadErr
	}

	go func() { _ = a.Initialize(context.Background()) }()
	<-started

	if err := a.Initialize(context.Background()); !errors.Is(err, loadErr) {
		t.Errorf("waiter got %v; want %v", err, loadErr)
	}
}

func TestInitializeContextCancelledWhileWaiting(t *testing.T) {
	a := testAdapter()

	started := make(chan struct{})
	release := make(chan struct{})
	a.loadFn = func() error {
		close(started)
		<-release
		return nil
	}

	go func() { _ = a.Initialize(context.Background()) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Initialize(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Initialize with cancelled ctx = %v; want context.Canceled", err)
	}
	close(release)
}

func TestLoadModelsMissingFile(t *testing.T) {
	a := NewAdapter(config.VisionConfig{
		ModelsDir:          t.TempDir(), // empty: no model files
		DetectionThreshold: 0.5,
		EmbeddingDim:       512,
	}, StdCodec{})

	err := a.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected error for missing model files")
	}
	var mlErr *ModelLoadError
	if !errors.As(err, &mlErr) {
		t.Fatalf("error type = %T; want *ModelLoadError", err)
	}
	if mlErr.Path == "" {
		t.Error("ModelLoadError.Path is empty; want offending file path")
	}
}

func TestDetectPropagatesLoadFailure(t *testing.T) {
	a := testAdapter()

	loadErr := &ModelLoadError{Path: "det_10g.onnx", Err: errors.New("missing")}
	a.loadFn = func() error { return loadErr }

	_, err := a.Detect(context.Background(), []byte("irrelevant"))
	var mlErr *ModelLoadError
	if !errors.As(err, &mlErr) {
		t.Fatalf("Detect error = %v; want *ModelLoadError", err)
	}
}
