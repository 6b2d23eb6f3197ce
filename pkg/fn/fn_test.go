package fn

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
}

func TestErrf(t *testing.T) {
	r := Errf[string]("code %d", 404)
	_, err := r.Unwrap()
	if err == nil || err.Error() != "code 404" {
		t.Fatal("Errf wrong message")
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Must should panic on Err")
		}
	}()
	Err[int](errors.New("boom")).Must()
}

func TestUnwrapOr(t *testing.T) {
	if Ok(1).UnwrapOr(9) != 1 {
		t.Fatal("should return value")
	}
	if Err[int](errors.New("x")).UnwrapOr(9) != 9 {
		t.Fatal("should return fallback")
	}
}

func TestFromPairAndCollect(t *testing.T) {
	if FromPair(3, nil).Must() != 3 {
		t.Fatal("FromPair should be ok")
	}
	if FromPair(0, errors.New("bad")).IsOk() {
		t.Fatal("FromPair should be err")
	}

	all := Collect([]Result[int]{Ok(1), Ok(2)})
	vs := all.Must()
	if len(vs) != 2 || vs[0] != 1 || vs[1] != 2 {
		t.Fatal("Collect wrong values")
	}
	if Collect([]Result[int]{Ok(1), Err[int](errors.New("x"))}).IsOk() {
		t.Fatal("Collect should propagate error")
	}
}

func TestMapResult(t *testing.T) {
	r := MapResult(Ok(5), strconv.Itoa)
	if r.Must() != "5" {
		t.Fatal("MapResult wrong value")
	}
	if MapResult(Err[int](errors.New("x")), strconv.Itoa).IsOk() {
		t.Fatal("MapResult should skip on err")
	}
}

// --- Parallel ---

func TestParMapResult(t *testing.T) {
	out := ParMapResult([]int{1, 2, 3}, 2, func(v int) Result[int] {
		return Ok(v * 10)
	})
	for i, want := range []int{10, 20, 30} {
		if out[i].Must() != want {
			t.Fatalf("index %d wrong", i)
		}
	}
}

func TestFirstReturnsFastestOk(t *testing.T) {
	r := First(context.Background(),
		func(ctx context.Context) Result[string] {
			select {
			case <-ctx.Done():
				return Err[string](ctx.Err())
			case <-time.After(200 * time.Millisecond):
				return Ok("slow")
			}
		},
		func(ctx context.Context) Result[string] {
			return Ok("fast")
		},
	)
	if r.Must() != "fast" {
		t.Fatal("First should return the fastest success")
	}
}

func TestFirstSkipsFailures(t *testing.T) {
	r := First(context.Background(),
		func(ctx context.Context) Result[int] { return Err[int](errors.New("down")) },
		func(ctx context.Context) Result[int] { return Ok(7) },
	)
	if r.Must() != 7 {
		t.Fatal("First should skip failing racers")
	}
}

func TestFirstAllFail(t *testing.T) {
	r := First(context.Background(),
		func(ctx context.Context) Result[int] { return Err[int](errors.New("a")) },
		func(ctx context.Context) Result[int] { return Err[int](errors.New("b")) },
	)
	if r.IsOk() {
		t.Fatal("First should fail when all racers fail")
	}
}

func TestFirstEmpty(t *testing.T) {
	r := First[int](context.Background())
	if _, err := r.Unwrap(); !errors.Is(err, ErrNoWinner) {
		t.Fatalf("want ErrNoWinner, got %v", err)
	}
}

// --- Retry ---

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(ctx context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("transient"))
		}
		return Ok(attempts)
	})
	if r.Must() != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhausted(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(ctx context.Context) Result[int] {
		return Err[int](errors.New("always"))
	})
	if r.IsOk() {
		t.Fatal("Retry should give up after MaxAttempts")
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Second, MaxWait: time.Second}
	r := Retry(ctx, opts, func(ctx context.Context) Result[int] {
		return Err[int](errors.New("transient"))
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
