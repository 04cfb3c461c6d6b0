package stealth

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderConsistentPerSession(t *testing.T) {
	p := NewProvider(100)

	first := p.ForSession("B08N5WRWNW")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.ForSession("B08N5WRWNW"))
	}
}

func TestProviderDistinctSessionsUsuallyDiffer(t *testing.T) {
	p := NewProvider(1000)

	// With 18 identities x 7 viewports x 6 timezones, 50 sessions
	// collapsing to one fingerprint would mean a broken generator.
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		fp := p.ForSession(fmt.Sprintf("session-%d", i))
		seen[fp.UserAgent+fp.Viewport.String()+fp.Timezone] = true
	}
	assert.Greater(t, len(seen), 10)
}

func TestProviderPoolSizes(t *testing.T) {
	require.GreaterOrEqual(t, len(identities), 15)
	require.GreaterOrEqual(t, len(viewports), 5)
	require.GreaterOrEqual(t, len(usTimezones), 5)
}

func TestProviderFieldsPopulated(t *testing.T) {
	p := NewProvider(10)
	fp := p.ForSession("key")

	assert.NotEmpty(t, fp.UserAgent)
	assert.NotEmpty(t, fp.Platform)
	assert.NotEmpty(t, fp.Timezone)
	assert.Equal(t, "en-US", fp.Locale)
	assert.Greater(t, fp.Viewport.Width, 0)
	assert.Greater(t, fp.Viewport.Height, 0)
	assert.Greater(t, fp.ColorDepth, 0)
	assert.Greater(t, fp.DeviceMemory, 0)
	assert.Greater(t, fp.HardwareConcurrency, 0)
}

func TestProviderEviction(t *testing.T) {
	p := NewProvider(3)

	for i := 0; i < 10; i++ {
		p.ForSession(fmt.Sprintf("session-%d", i))
	}

	assert.LessOrEqual(t, p.Len(), 3)

	// The newest session must have survived.
	before := p.Len()
	p.ForSession("session-9")
	assert.Equal(t, before, p.Len())
}

func TestProviderCookies(t *testing.T) {
	p := NewProvider(10)

	assert.Nil(t, p.Cookies("unknown"))

	cookies := []Cookie{
		{Name: "session-id", Value: "abc123", Domain: ".amazon.com"},
		{Name: "ubid-main", Value: "xyz", Domain: ".amazon.com"},
	}
	p.SetCookies("s1", cookies)

	got := p.Cookies("s1")
	require.Len(t, got, 2)
	assert.Equal(t, "session-id", got[0].Name)

	// The returned slice is a copy; mutating it must not affect the store.
	got[0].Value = "mutated"
	assert.Equal(t, "abc123", p.Cookies("s1")[0].Value)
}

func TestProviderConcurrentAccess(t *testing.T) {
	p := NewProvider(50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("session-%d", n%5)
				p.ForSession(key)
				p.Cookies(key)
			}
		}(i)
	}
	wg.Wait()

	// Same key always resolves to the same fingerprint afterwards.
	fp := p.ForSession("session-0")
	assert.Equal(t, fp, p.ForSession("session-0"))
}

func TestHumanDelayRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	min := 100 * time.Millisecond
	max := 500 * time.Millisecond

	for i := 0; i < 200; i++ {
		d := HumanDelay(rng, min, max)
		assert.GreaterOrEqual(t, d, min)
		// Worst case: max plus the full distracted pause.
		assert.LessOrEqual(t, d, max+10*time.Second)
	}
}

func TestHumanDelayDegenerateRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, time.Second, HumanDelay(rng, time.Second, time.Second))
	assert.Equal(t, time.Second, HumanDelay(rng, time.Second, 0))
}
