package events

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestCatalogComplete(t *testing.T) {
	require.Len(t, AllTypes, 28)
	seen := make(map[Type]struct{}, len(AllTypes))
	for _, tpe := range AllTypes {
		require.True(t, Known(tpe))
		_, dup := seen[tpe]
		require.False(t, dup, "duplicate type %s", tpe)
		seen[tpe] = struct{}{}
	}
	require.False(t, Known(Type("NOT_A_TYPE")))
}

// Every known type belongs to exactly one of the five categories, except the
// RAW and CUSTOM pass-through types which belong to none.
func TestCategoryPartitionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	guards := []func(Type) bool{IsLifecycle, IsTextMessage, IsToolCall, IsState, IsReasoning}
	properties.Property("category guards partition the catalog", prop.ForAll(
		func(i int) bool {
			tpe := AllTypes[i]
			n := 0
			for _, guard := range guards {
				if guard(tpe) {
					n++
				}
			}
			if tpe == TypeRaw || tpe == TypeCustom {
				return n == 0
			}
			return n == 1
		},
		gen.IntRange(0, len(AllTypes)-1),
	))
	properties.TestingRun(t)
}

func TestCategorySizes(t *testing.T) {
	counts := map[string]int{}
	for _, tpe := range AllTypes {
		switch {
		case IsLifecycle(tpe):
			counts["lifecycle"]++
		case IsTextMessage(tpe):
			counts["text"]++
		case IsToolCall(tpe):
			counts["tool"]++
		case IsState(tpe):
			counts["state"]++
		case IsReasoning(tpe):
			counts["reasoning"]++
		default:
			counts["special"]++
		}
	}
	require.Equal(t, map[string]int{
		"lifecycle": 5,
		"text":      4,
		"tool":      5,
		"state":     5,
		"reasoning": 7,
		"special":   2,
	}, counts)
}
