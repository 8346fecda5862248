package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainFullQuery(t *testing.T) {
	ex := Explain(`(//VerticalLayout[id="form"]/Button[caption="OK"][0]#icon)[1]`)

	assert.False(t, ex.Overlay)
	assert.Equal(t, "icon", ex.Subpart)
	assert.Equal(t, []int{1}, ex.PostFilter)

	require.Len(t, ex.Segments, 2)

	first := ex.Segments[0]
	assert.Equal(t, "descendant", first.Descent)
	assert.Equal(t, "VerticalLayout", first.Token)
	require.Len(t, first.Predicates, 1)
	assert.Equal(t, ExplainedPredicate{Kind: "equals", Index: -1, Name: "id", Value: "form"}, first.Predicates[0])

	second := ex.Segments[1]
	assert.Equal(t, "child", second.Descent)
	assert.Equal(t, "Button", second.Token)
	require.Len(t, second.Predicates, 2)
	assert.Equal(t, ExplainedPredicate{Kind: "equals", Index: -1, Name: "caption", Value: "OK"}, second.Predicates[0])
	assert.Equal(t, ExplainedPredicate{Kind: "index", Index: 0}, second.Predicates[1])
}

func TestExplainPresencePredicate(t *testing.T) {
	ex := Explain(`//Panel[caption]`)

	require.Len(t, ex.Segments, 1)
	require.Len(t, ex.Segments[0].Predicates, 1)
	assert.Equal(t, ExplainedPredicate{Kind: "present", Index: -1, Name: "caption"}, ex.Segments[0].Predicates[0])
}

func TestExplainOverlayQuery(t *testing.T) {
	ex := Explain(`//Toast[1]`)

	assert.True(t, ex.Overlay)
	require.Len(t, ex.Segments, 1)
	assert.Equal(t, "Toast", ex.Segments[0].Token)
	assert.Equal(t, ExplainedPredicate{Kind: "index", Index: 1}, ex.Segments[0].Predicates[0])

	assert.False(t, Explain(`//NotificationPanel`).Overlay, "token boundary is the whole segment")
}

func TestExplainEmptyQuery(t *testing.T) {
	ex := Explain("")

	assert.Empty(t, ex.Segments)
	assert.Empty(t, ex.Subpart)
	assert.Empty(t, ex.PostFilter)
}

func TestExplainQuotedSeparators(t *testing.T) {
	ex := Explain(`//Panel[caption="a/b#c"]`)

	require.Len(t, ex.Segments, 1)
	assert.Empty(t, ex.Subpart)
	assert.Equal(t, "a/b#c", ex.Segments[0].Predicates[0].Value)
}

func TestExplainMalformedDegrades(t *testing.T) {
	ex := Explain(`//Button[0`)

	require.Len(t, ex.Segments, 1)
	assert.Equal(t, "Button", ex.Segments[0].Token)
	assert.Empty(t, ex.Segments[0].Predicates, "unterminated group parses as no predicates")

	ex = Explain(`///x`)
	require.Len(t, ex.Segments, 1)
	assert.Equal(t, "descendant", ex.Segments[0].Descent)
}
