package pool_test

import (
	"errors"
	"testing"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/pool"
)

func TestFramePoolReuse(t *testing.T) {
	fp := pool.NewFramePool(1514, 4)
	b1, err := fp.Get(128)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(b1.Bytes()) != 128 {
		t.Errorf("Expected 128 bytes, got %d", len(b1.Bytes()))
	}
	b1.Release()
	b1.Release()
	b2, _ := fp.Get(64)
	if cap(b2.Bytes()) < 1514 {
		t.Error("Buffer capacity too small; reuse failed")
	}
	st := fp.Stats()
	if st.TotalAlloc != 2 || st.TotalFree != 1 || st.InUse != 1 {
		t.Errorf("Unexpected stats after double release: %+v", st)
	}
}

func TestFramePoolLimit(t *testing.T) {
	fp := pool.NewFramePool(64, 2)
	a, _ := fp.Get(10)
	if _, err := fp.Get(10); err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if _, err := fp.Get(10); !errors.Is(err, api.ErrResourceExhausted) {
		t.Fatalf("Expected exhaustion, got %v", err)
	}
	a.Release()
	if _, err := fp.Get(10); err != nil {
		t.Errorf("Get after release failed: %v", err)
	}
	if fp.Stats().Failed != 1 {
		t.Errorf("Expected 1 failed allocation, got %d", fp.Stats().Failed)
	}
}

func TestFramePoolRejectsOversize(t *testing.T) {
	fp := pool.NewFramePool(64, 2)
	if _, err := fp.Get(65); !errors.Is(err, api.ErrFrameTooLarge) {
		t.Errorf("Expected ErrFrameTooLarge, got %v", err)
	}
}
