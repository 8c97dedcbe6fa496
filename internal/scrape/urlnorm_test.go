package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"journal subdomain", "https://alicornutopia.dreamwidth.org/1640.html", false},
		{"bare host", "https://dreamwidth.org/somewhere", false},
		{"http scheme", "http://edgepath.dreamwidth.org/2.html", false},
		{"wrong host", "https://example.com/1640.html", true},
		{"lookalike host", "https://notdreamwidth.org/1640.html", true},
		{"ftp scheme", "ftp://alicornutopia.dreamwidth.org/1640.html", true},
		{"no scheme", "alicornutopia.dreamwidth.org/1640.html", true},
		{"garbage", "ht tp://%%", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				var invalidErr *InvalidURLError
				assert.ErrorAs(t, err, &invalidErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeURL_Flat(t *testing.T) {
	got := NormalizeURL("https://alicornutopia.dreamwidth.org/1640.html", false)
	assert.Equal(t, "https://alicornutopia.dreamwidth.org/1640.html?style=site&view=flat", got)
}

func TestNormalizeURL_FlatOverridesExistingParams(t *testing.T) {
	got := NormalizeURL("https://alicornutopia.dreamwidth.org/1640.html?style=mine&view=top", false)
	assert.Equal(t, "https://alicornutopia.dreamwidth.org/1640.html?style=site&view=flat", got)
}

func TestNormalizeURL_ThreadedDropsFlatView(t *testing.T) {
	got := NormalizeURL("https://edgepath.dreamwidth.org/2.html?view=flat", true)
	assert.Equal(t, "https://edgepath.dreamwidth.org/2.html?style=site", got)
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	once := NormalizeURL("https://alicornutopia.dreamwidth.org/1640.html?page=2", false)
	twice := NormalizeURL(once, false)
	assert.Equal(t, once, twice)

	tOnce := NormalizeURL("https://edgepath.dreamwidth.org/2.html", true)
	tTwice := NormalizeURL(tOnce, true)
	assert.Equal(t, tOnce, tTwice)
}

func TestNormalizeURL_PreservesOtherParams(t *testing.T) {
	got := NormalizeURL("https://alicornutopia.dreamwidth.org/1640.html?page=3", false)
	assert.Contains(t, got, "page=3")
	assert.Contains(t, got, "style=site")
	assert.Contains(t, got, "view=flat")
}

func TestNormalizeURL_MalformedPassesThrough(t *testing.T) {
	raw := "ht tp://%%"
	assert.Equal(t, raw, NormalizeURL(raw, false))
}
