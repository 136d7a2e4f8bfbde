package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benasque-conf/participants/internal/models"
)

func TestExtractID(t *testing.T) {
	cases := map[string]string{
		"https://arxiv.org/abs/2412.13894":         "2412.13894",
		"https://arxiv.org/abs/2412.13894v2":       "2412.13894v2",
		"https://arxiv.org/pdf/2412.13894.pdf":     "2412.13894",
		"http://ARXIV.org/pdf/2412.13894v1":        "2412.13894v1",
		"https://arxiv.org/abs/hep-th/9901001":     "hep-th/9901001",
		"https://arxiv.org/pdf/hep-th/9901001.pdf": "hep-th/9901001",
		"arXiv:2502.18098":                         "2502.18098",
		"arxiv:hep-th/9901001v3":                   "hep-th/9901001v3",
		"  2412.13894  ":                           "2412.13894",
		"hep-th/9901001":                           "hep-th/9901001",
		"https://example.org/paper":                "",
		"2412.138":                                 "",
		"":                                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractID(in), in)
	}
	assert.True(t, IsArxivRef("arXiv:2502.18098"))
}

const atom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <entry>
    <title>Dark   Energy
      and the   Cosmic Web</title>
  </entry>
</feed>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`

func newServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		switch r.URL.Query().Get("id_list") {
		case "2412.13894":
			_, _ = w.Write([]byte(atom))
		case "0000.00000":
			_, _ = w.Write([]byte(emptyFeed))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveKeepsOrderAndDegradesToNoTitle(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls)
	c := NewClient(Config{APIURL: srv.URL, RequestDelay: time.Millisecond}, NewMemoryCache(time.Hour), nil)

	links := c.Resolve(context.Background(), []string{
		"https://arxiv.org/abs/2412.13894",
		"  ",
		"https://example.org/not-arxiv",
		"arXiv:0000.00000",
		"hep-th/9901001",
	})
	require.Len(t, links, 4)
	require.NotNil(t, links[0].Title)
	assert.Equal(t, "Dark Energy and the Cosmic Web", *links[0].Title)
	assert.Equal(t, "https://example.org/not-arxiv", links[1].URL)
	assert.Nil(t, links[1].Title)
	assert.Nil(t, links[2].Title)
	assert.Nil(t, links[3].Title)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	// Cached titles skip the API.
	links = c.Resolve(context.Background(), []string{"arXiv:2412.13894"})
	assert.Equal(t, "Dark Energy and the Cosmic Web", *links[0].Title)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestCompleteKeepsExistingTitles(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls)
	c := NewClient(Config{APIURL: srv.URL, RequestDelay: time.Millisecond}, nil, nil)

	title := "Given"
	links := c.Complete(context.Background(), []models.ArxivLink{
		{URL: "https://arxiv.org/abs/2412.13894", Title: &title},
		{URL: ""},
	})
	require.Len(t, links, 1)
	assert.Equal(t, "Given", *links[0].Title)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestRequestsAreSpaced(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls)
	c := NewClient(Config{APIURL: srv.URL, RequestDelay: 50 * time.Millisecond}, nil, nil)

	start := time.Now()
	c.Resolve(context.Background(), []string{"1111.11111", "2222.22222", "3333.33333"})
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }
	c.Set(context.Background(), "id", "title")
	got, ok := c.Get(context.Background(), "id")
	assert.True(t, ok)
	assert.Equal(t, "title", got)
	now = now.Add(2 * time.Minute)
	_, ok = c.Get(context.Background(), "id")
	assert.False(t, ok)
}
