package simulator

import (
	"errors"
	"sync"
	"testing"
)

func TestIssueMintsUniqueCodes(t *testing.T) {
	store, err := newMemoryContextStore()
	if err != nil {
		t.Fatal(err)
	}

	const n = 64
	codes := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := store.Issue(&RequestContext{Sub: "sub"})
			if err != nil {
				t.Error(err)
				return
			}
			codes <- code
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool)
	for code := range codes {
		if seen[code] {
			t.Fatalf("code %q issued twice", code)
		}
		seen[code] = true
	}
	if len(seen) != n {
		t.Fatalf("issued %d unique codes, want %d", len(seen), n)
	}
	if store.len() != n {
		t.Fatalf("store holds %d contexts, want %d", store.len(), n)
	}
}

func TestRedeemIsSingleUse(t *testing.T) {
	store, err := newMemoryContextStore()
	if err != nil {
		t.Fatal(err)
	}

	code, err := store.Issue(&RequestContext{Sub: "sub", Nonce: "n"})
	if err != nil {
		t.Fatal(err)
	}

	rc, err := store.Redeem(code)
	if err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}
	if rc.Sub != "sub" || rc.Nonce != "n" {
		t.Errorf("redeemed context = %+v, want stored values", rc)
	}

	if _, err := store.Redeem(code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("second redemption error = %v, want ErrCodeNotFound", err)
	}
}

func TestRedeemConcurrentExactlyOneWinner(t *testing.T) {
	store, err := newMemoryContextStore()
	if err != nil {
		t.Fatal(err)
	}
	code, err := store.Issue(&RequestContext{Sub: "sub"})
	if err != nil {
		t.Fatal(err)
	}

	const n = 32
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Redeem(code)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("%d redemptions succeeded, want exactly 1", winners)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	store, err := newMemoryContextStore()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Redeem("no-such-code"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("error = %v, want ErrCodeNotFound", err)
	}
}

func TestTokenStoreKeysByClientAndSubject(t *testing.T) {
	store := newMemoryTokenStore()
	store.Append("client-a", "sub-1", "token-1")
	store.Append("client-a", "sub-1", "token-2")
	store.Append("client-a", "sub-2", "token-3")

	tokens := store.Tokens("client-a", "sub-1")
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	if len(store.Tokens("client-b", "sub-1")) != 0 {
		t.Error("tokens leaked across clients")
	}
}
