package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMintsForMissingToken(t *testing.T) {
	r := NewResolver()

	id, minted := r.Resolve("")
	require.True(t, minted)
	require.True(t, strings.HasPrefix(id, Prefix))
	_, err := ulid.Parse(strings.TrimPrefix(id, Prefix))
	require.NoError(t, err)

	again, minted := r.Resolve(id)
	assert.False(t, minted, "a minted id is reused unchanged")
	assert.Equal(t, id, again)
}

func TestResolveReusesLegacyTokens(t *testing.T) {
	r := NewResolver()
	id, minted := r.Resolve("sess_1700000000000_k3j4h5g6f")
	assert.False(t, minted)
	assert.Equal(t, "sess_1700000000000_k3j4h5g6f", id)
}

func TestResolveRejectsMalformed(t *testing.T) {
	r := NewResolver()
	for _, token := range []string{"has space", "semi;colon", "<script>", strings.Repeat("a", 256)} {
		id, minted := r.Resolve(token)
		assert.True(t, minted, token)
		assert.NotEqual(t, token, id)
	}
}

func TestMintedIDsAreUnique(t *testing.T) {
	r := NewResolver()
	const n = 2000
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := r.Resolve("")
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate session id %s", id)
		seen[id] = struct{}{}
	}
}

func TestCookie(t *testing.T) {
	c := Cookie("sess_x", 0, true)
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "sess_x", c.Value)
	assert.Equal(t, int(DefaultAge/time.Second), c.MaxAge)
	assert.True(t, c.HTTPOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, fiber.CookieSameSiteLaxMode, c.SameSite)

	assert.False(t, Cookie("sess_x", time.Hour, false).Secure)
}
