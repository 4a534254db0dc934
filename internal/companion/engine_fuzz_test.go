//go:build go1.18
// +build go1.18

package companion

import (
	"math/rand"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"go.uber.org/zap"

	"github.com/solivara/vigil/api/schemas"
	"github.com/solivara/vigil/internal/stress"
)

// FuzzEngine_SubmitMessage hammers the message path with arbitrary
// operator input and checks the structural invariants hold regardless of
// content: the log stays bounded, trust stays clamped, the stress level
// stays one of the four defined values, and nothing panics.
func FuzzEngine_SubmitMessage(f *testing.F) {
	f.Add([]byte("socorro, I'm scared and the battery is dead"))
	f.Add([]byte("vigil status ok"))
	f.Add([]byte(""))

	store := newFakeStore()
	eng, err := New(testConfig(), zap.NewNop(), store,
		WithRand(rand.New(rand.NewSource(1))),
	)
	if err != nil {
		f.Fatalf("failed to create engine: %v", err)
	}
	if _, err := eng.Start("OP-FUZZ", "nowhere", nil); err != nil {
		f.Fatalf("failed to start mission: %v", err)
	}
	eng.mon.Stop()

	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		message, err := fuzzConsumer.GetString()
		if err != nil {
			return
		}

		if _, _, err := eng.SubmitMessage(message); err != nil {
			t.Fatalf("SubmitMessage returned an error: %v", err)
		}

		snap := eng.Status()
		if snap.Trust < 0 || snap.Trust > 100 {
			t.Fatalf("trust escaped its bounds: %d", snap.Trust)
		}
		switch snap.Stress {
		case schemas.StressLow, schemas.StressModerate, schemas.StressHigh, schemas.StressCritical:
		default:
			t.Fatalf("unknown stress level: %q", snap.Stress)
		}
		if n := eng.interactions.Len(); n > stress.LogCapacity {
			t.Fatalf("interaction log exceeded its capacity: %d", n)
		}

		// Keep the emission buffer from filling up across iterations.
		drain(eng)
	})
}
