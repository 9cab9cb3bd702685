package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/jetscope/internal/handlers"
	"github.com/example/jetscope/internal/repository"
	"github.com/example/jetscope/internal/serving"
	"github.com/example/jetscope/internal/usecase"
)

// blockingClassifier holds Classify open until release is closed.
type blockingClassifier struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingClassifier) Classify(ctx context.Context, callerID string, image []byte, opts serving.RequestOptions) (*usecase.Classification, error) {
	close(b.started)
	<-b.release
	return &usecase.Classification{
		RequestID:   "req-inflight",
		Body:        []byte(`{"probabilities":[0.2,0.8]}`),
		ContentType: serving.JSONContentType,
	}, nil
}

func (b *blockingClassifier) GetResult(ctx context.Context, requestID string) (*repository.PredictionLog, error) {
	return nil, usecase.ErrPersistenceDisabled
}

func (b *blockingClassifier) GetMetricsSummary(ctx context.Context) (*usecase.MetricsSummary, error) {
	return nil, usecase.ErrPersistenceDisabled
}

func TestServerGracefulShutdownCompletesInvocation(t *testing.T) {
	logger := zap.NewNop()

	uc := &blockingClassifier{started: make(chan struct{}), release: make(chan struct{})}
	released := false
	defer func() {
		if !released {
			close(uc.release)
		}
	}()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers.RegisterRoutes(router, uc, nil, handlers.Options{Logger: logger})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	server := &http.Server{Handler: router}

	signalCh := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- serveHTTPServerWithOptions(server, 2*time.Second, logger, listener, signalCh)
	}()

	addr := listener.Addr().String()
	waitForServer(t, addr)

	client := &http.Client{Timeout: 2 * time.Second}
	respCh := make(chan *http.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := client.Post("http://"+addr+"/invocations", serving.ImageContentType, bytes.NewReader([]byte("jpeg")))
		if err != nil {
			errCh <- err
			return
		}
		respCh <- resp
	}()

	select {
	case <-uc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("invocation did not reach the classifier in time")
	}

	signalCh <- syscall.SIGTERM

	time.Sleep(50 * time.Millisecond)
	close(uc.release)
	released = true

	select {
	case resp := <-respCh:
		t.Cleanup(func() { resp.Body.Close() })
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status: %d body: %s", resp.StatusCode, string(body))
		}
		if got := resp.Header.Get(handlers.RequestIDHeader); got != "req-inflight" {
			t.Fatalf("unexpected request id %q", got)
		}
		if string(body) != `{"probabilities":[0.2,0.8]}` {
			t.Fatalf("unexpected body %s", body)
		}
	case err := <-errCh:
		t.Fatalf("request failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server did not shutdown cleanly: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after shutdown")
	}

	if conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond); err == nil {
		conn.Close()
		t.Fatal("listener still accepting connections after shutdown")
	}
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server %s did not become ready", addr)
}
