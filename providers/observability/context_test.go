package observability

import (
	"context"
	"sync"
	"testing"
)

type recordingSpan struct {
	name string
}

func (s *recordingSpan) End()                          {}
func (s *recordingSpan) SetAttributes(...Attribute)    {}
func (s *recordingSpan) SetStatus(StatusCode, string)  {}
func (s *recordingSpan) RecordError(error)             {}
func (s *recordingSpan) AddEvent(string, ...Attribute) {}

func TestSpanFromContext_Empty(t *testing.T) {
	if span := SpanFromContext(context.Background()); span != nil {
		t.Errorf("Expected nil span from empty context, got %v", span)
	}
	//nolint:staticcheck // nil context is handled explicitly
	if span := SpanFromContext(nil); span != nil {
		t.Errorf("Expected nil span from nil context, got %v", span)
	}
}

func TestContextWithSpan_RoundTrip(t *testing.T) {
	first := &recordingSpan{name: "first"}
	second := &recordingSpan{name: "second"}

	ctx := ContextWithSpan(context.Background(), first)
	if got := SpanFromContext(ctx); got != first {
		t.Fatalf("Expected first span, got %v", got)
	}

	ctx = ContextWithSpan(ctx, second)
	if got := SpanFromContext(ctx); got != second {
		t.Errorf("Expected inner span to shadow outer one, got %v", got)
	}

	//nolint:staticcheck // nil context is handled explicitly
	if got := SpanFromContext(ContextWithSpan(nil, first)); got != first {
		t.Errorf("Expected span stored on a nil context, got %v", got)
	}
}

func TestContextWithSpan_SurvivesWrapping(t *testing.T) {
	span := &recordingSpan{name: "parent"}
	ctx, cancel := context.WithCancel(ContextWithSpan(context.Background(), span))
	defer cancel()

	if got := SpanFromContext(ctx); got != span {
		t.Errorf("Expected span to survive context wrapping")
	}
}

func TestContextWithSpan_Concurrent(t *testing.T) {
	span := &recordingSpan{name: "concurrent"}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := SpanFromContext(ContextWithSpan(context.Background(), span)); got != span {
				t.Errorf("Concurrent access failed")
			}
		}()
	}
	wg.Wait()
}

func TestContextWithObserver_RoundTrip(t *testing.T) {
	observer := Nop()
	ctx := ContextWithObserver(context.Background(), observer)

	if got := ObserverFromContext(ctx); got != observer {
		t.Errorf("Expected stored observer, got %v", got)
	}
	if got := ObserverFromContext(context.Background()); got != nil {
		t.Errorf("Expected nil observer from empty context, got %v", got)
	}
	//nolint:staticcheck // nil context is handled explicitly
	if got := ObserverFromContext(nil); got != nil {
		t.Errorf("Expected nil observer from nil context, got %v", got)
	}
}
