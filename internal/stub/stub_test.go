package stub

import (
	"context"
	"net/http/httptest"
	"testing"

	"zujuan/internal/ai"
)

func newStubServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(New("stub-vision-1").Routes())
	t.Cleanup(server.Close)
	return server
}

// The stub must be usable through the same client the real backend is.
func TestAnalyzeAgainstStub(t *testing.T) {
	server := newStubServer(t)
	client := ai.New(server.URL+"/v1", "stub-key", "stub-vision-1", "stub-embed-1")

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	result, err := client.Analyze(context.Background(), []byte("image-a"), "image/png", "a.png")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := result.Validate(); err != nil {
		t.Errorf("stub analysis should validate: %v", err)
	}

	again, err := client.Analyze(context.Background(), []byte("image-a"), "image/png", "a.png")
	if err != nil {
		t.Fatalf("Analyze again: %v", err)
	}
	if result.QuestionText != again.QuestionText || result.Answer != again.Answer {
		t.Error("identical uploads should produce identical analyses")
	}

	other, err := client.Analyze(context.Background(), []byte("image-b"), "image/png", "b.png")
	if err != nil {
		t.Fatalf("Analyze other: %v", err)
	}
	if result.QuestionText == other.QuestionText {
		t.Error("different uploads should produce different analyses")
	}
}

func TestEmbedAgainstStub(t *testing.T) {
	server := newStubServer(t)
	client := ai.New(server.URL+"/v1", "stub-key", "stub-vision-1", "stub-embed-1")

	a, err := client.Embed(context.Background(), "导数")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(a) != embeddingDims {
		t.Fatalf("vector length = %d, want %d", len(a), embeddingDims)
	}

	b, err := client.Embed(context.Background(), "导数")
	if err != nil {
		t.Fatalf("Embed again: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("identical inputs should embed identically")
		}
	}
}

func TestEmbedDeterministic(t *testing.T) {
	a := Embed("hello")
	b := Embed("hello")
	c := Embed("world")

	equal := true
	for i := range a {
		if a[i] != b[i] {
			equal = false
		}
	}
	if !equal {
		t.Error("Embed should be deterministic")
	}

	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different inputs should not share a vector")
	}
}
