package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptance(t *testing.T) {
	cases := map[string]Acceptance{
		"":          Pending,
		"null":      Pending,
		"pending":   Pending,
		"1":         Accepted,
		"accepted":  Accepted,
		"0":         Rejected,
		" Rejected": Rejected,
	}
	for in, want := range cases {
		got, err := ParseAcceptance(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAcceptance("2")
	assert.Error(t, err)
}

func TestAcceptanceJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Acceptance `json:"a"`
		B Acceptance `json:"b"`
		C Acceptance `json:"c"`
	}{Pending, Accepted, Rejected})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":1,"c":0}`, string(b))

	var v struct {
		A Acceptance `json:"a"`
		B Acceptance `json:"b"`
		C Acceptance `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":"1","c":0}`), &v))
	assert.Equal(t, Pending, v.A)
	assert.Equal(t, Accepted, v.B)
	assert.Equal(t, Rejected, v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":7}`), &v))
}

func TestAcceptanceScanValue(t *testing.T) {
	var a Acceptance
	require.NoError(t, a.Scan(nil))
	assert.Equal(t, Pending, a)
	require.NoError(t, a.Scan(int64(1)))
	assert.Equal(t, Accepted, a)
	require.NoError(t, a.Scan(int16(0)))
	assert.Equal(t, Rejected, a)
	assert.Error(t, a.Scan(int64(3)))

	v, err := Pending.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = Accepted.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	v, err = Rejected.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestAcceptanceZeroValueIsPending(t *testing.T) {
	var p Participant
	assert.Equal(t, Pending, p.TalkContributedAccepted)
	assert.True(t, p.TalkContributedAccepted.Valid())
	assert.Equal(t, int64(-1), p.TalkContributedAccepted.Code())
	assert.False(t, Acceptance(5).Valid())
}

func TestArxivLinkAcceptsBothShapes(t *testing.T) {
	var links ArxivLinks
	in := `["https://arxiv.org/abs/2101.00001", {"url": "https://arxiv.org/abs/2101.00002", "title": "Dark matter"}, {"url": "x", "title": ""}]`
	require.NoError(t, json.Unmarshal([]byte(in), &links))
	require.Len(t, links, 3)
	assert.Equal(t, "https://arxiv.org/abs/2101.00001", links[0].URL)
	assert.Nil(t, links[0].Title)
	require.NotNil(t, links[1].Title)
	assert.Equal(t, "Dark matter", *links[1].Title)
	assert.Nil(t, links[2].Title)
}

func TestArxivLinksCapKeepsEarliest(t *testing.T) {
	links := ArxivLinks{{URL: "a"}, {URL: "b"}, {URL: "c"}, {URL: "d"}, {URL: "e"}}
	assert.Equal(t, []string{"a", "b", "c"}, links.Cap(3).URLs())
	assert.Len(t, links[:2].Cap(3), 2)
}

func TestArxivLinksCompactDropsBlankURLs(t *testing.T) {
	links := ArxivLinks{{URL: ""}, {URL: "  "}, {URL: " a "}, {URL: "b"}}
	assert.Equal(t, []string{"a", "b"}, links.Compact().URLs())
	assert.Empty(t, ArxivLinks(nil).Compact())
}

func TestArxivLinksRoundTripThroughColumn(t *testing.T) {
	title := "Title"
	v, err := ArxivLinks{{URL: "u", Title: &title}}.Value()
	require.NoError(t, err)

	var out ArxivLinks
	require.NoError(t, out.Scan(v))
	require.Len(t, out, 1)
	assert.Equal(t, "Title", *out[0].Title)

	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
	assert.NotNil(t, out)
}

func TestInterestTags(t *testing.T) {
	p := Participant{Interests: " cosmology, , dark energy ,"}
	assert.Equal(t, []string{"cosmology", "dark energy"}, p.InterestTags())
}
