package client

import (
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/websec-go/pkg/token"
)

var expiry = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func fp(value string) token.Token {
	return token.NewWithValue("fingerprint", value, expiry.Add(-time.Hour), expiry)
}

func TestMatches(t *testing.T) {
	c := NewIdentity("10.0.0.1", "Mozilla/5.0")

	assert.True(t, c.Matches("10.0.0.1", "Mozilla/5.0"))
	assert.False(t, c.Matches("10.0.0.2", "Mozilla/5.0"))
	assert.False(t, c.Matches("10.0.0.1", "curl/8.0"))
	assert.False(t, c.Matches("10.0.0.1", ""))
}

func TestMatches_AbsentUserAgent(t *testing.T) {
	c := NewIdentity("10.0.0.1", "")

	assert.True(t, c.Matches("10.0.0.1", ""))
	assert.False(t, c.Matches("10.0.0.1", "Mozilla/5.0"))
}

func TestFromRequest_EmptyUserAgentIsAbsent(t *testing.T) {
	withHeader := httptest.NewRequest("GET", "/", nil)
	withHeader.RemoteAddr = "10.0.0.1:1234"
	withHeader.Header.Set("User-Agent", "")
	without := httptest.NewRequest("GET", "/", nil)
	without.RemoteAddr = "10.0.0.1:1234"
	without.Header.Del("User-Agent")

	a := FromRequest(withHeader, false)
	b := FromRequest(without, false)
	assert.True(t, a.Matches(b.IPAddress(), b.UserAgent()))
	assert.True(t, a.Equal(b))
}

func TestMatches_IgnoresFingerprint(t *testing.T) {
	c := NewIdentity("::1", "ua")
	c.SetFingerprint(fp("AAAA"))
	assert.True(t, c.Matches("::1", "ua"))
}

func TestFingerprint_SetClear(t *testing.T) {
	c := NewIdentity("::1", "ua")

	_, ok := c.Fingerprint()
	assert.False(t, ok)

	c.SetFingerprint(fp("ABC"))
	got, ok := c.Fingerprint()
	require.True(t, ok)
	assert.Equal(t, "ABC", got.Value())

	c.SetFingerprint(fp("DEF"))
	got, _ = c.Fingerprint()
	assert.Equal(t, "DEF", got.Value())

	c.ClearFingerprint()
	_, ok = c.Fingerprint()
	assert.False(t, ok)
}

func TestInitTime(t *testing.T) {
	before := time.Now()
	c := NewIdentity("::1", "")
	assert.False(t, c.InitTime().Before(before.Truncate(time.Second)))
	assert.Equal(t, time.UTC, c.InitTime().Location())
}

func TestEqual(t *testing.T) {
	a := NewIdentity("1.2.3.4", "ua")
	b := NewIdentity("1.2.3.4", "ua")

	assert.True(t, a.Equal(a))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
	assert.False(t, a.Equal(NewIdentity("1.2.3.4", "")))
	assert.False(t, a.Equal(NewIdentity("1.2.3.5", "ua")))

	a.SetFingerprint(fp("X"))
	assert.False(t, a.Equal(b), "one fingerprint absent")

	b.SetFingerprint(fp("X"))
	assert.True(t, a.Equal(b))

	b.SetFingerprint(fp("Y"))
	assert.False(t, a.Equal(b))
}

func TestCompare(t *testing.T) {
	a := NewIdentity("1.1.1.1", "ua")
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, -1, a.Compare(nil))
	assert.Equal(t, -1, a.Compare(NewIdentity("2.2.2.2", "")))
	assert.Equal(t, 1, a.Compare(NewIdentity("1.1.1.1", "")))

	b := NewIdentity("1.1.1.1", "ua")
	assert.Equal(t, 0, a.Compare(b))

	b.SetFingerprint(fp("M"))
	assert.Equal(t, -1, a.Compare(b), "absent fingerprint sorts first")
	assert.Equal(t, 1, b.Compare(a))

	a.SetFingerprint(fp("N"))
	assert.Equal(t, 1, a.Compare(b))
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:54321"
	r.Header.Set("User-Agent", "test-agent")
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	c := FromRequest(r, false)
	assert.Equal(t, "192.0.2.10", c.IPAddress())
	assert.Equal(t, "test-agent", c.UserAgent())

	c = FromRequest(r, true)
	assert.Equal(t, "203.0.113.5", c.IPAddress())
}

func TestRemoteIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "not-a-hostport"
	assert.Equal(t, "not-a-hostport", RemoteIP(r, false))

	r.Header.Set("X-Real-IP", " 198.51.100.7 ")
	assert.Equal(t, "198.51.100.7", RemoteIP(r, true))
}

func TestJSON(t *testing.T) {
	c := NewIdentity("1.2.3.4", "ua")
	c.SetFingerprint(fp("FFFF0000FFFF0000"))

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got Identity
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, c.Equal(&got))
	assert.True(t, c.InitTime().Equal(got.InitTime()))

	bare := NewIdentity("1.2.3.4", "")
	data, err = json.Marshal(bare)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "fingerprint")
}

func TestFingerprint_ConcurrentReadWrite(t *testing.T) {
	c := NewIdentity("::1", "ua")
	a, b := fp("AAAAAAAA"), fp("BBBBBBBB")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if j%2 == 0 {
					c.SetFingerprint(a)
				} else {
					c.SetFingerprint(b)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				got, ok := c.Fingerprint()
				if ok && !got.Equal(a) && !got.Equal(b) {
					t.Error("torn fingerprint read")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestClone_Independent(t *testing.T) {
	c := NewIdentity("10.0.0.1", "Mozilla/5.0")
	c.SetFingerprint(fp("abc"))

	dup := c.Clone()
	assert.True(t, c.Equal(dup))

	dup.SetFingerprint(fp("xyz"))
	got, ok := c.Fingerprint()
	require.True(t, ok)
	assert.Equal(t, "abc", got.Value())
	assert.False(t, c.Equal(dup))
}
