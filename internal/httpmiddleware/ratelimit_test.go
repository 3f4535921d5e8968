package httpmiddleware

import (
	"context"
	"testing"
)

func TestTokenBucketExhaustion(t *testing.T) {
	l := NewSimpleTokenBucket(3, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatalf("expected budget exhausted")
	}

	// Other keys have their own budget.
	if !l.Allow(ctx, "5.6.7.8") {
		t.Fatalf("expected separate budget per key")
	}
}
