package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testSet = Set{
	Readonly: {ScopePrefix + "tagmanager.readonly", ScopePrefix + "analytics.readonly"},
	Edit:     {ScopePrefix + "tagmanager.edit.containers", ScopePrefix + "analytics.edit"},
	Publish: {
		ScopePrefix + "tagmanager.edit.containers",
		ScopePrefix + "tagmanager.publish",
		ScopePrefix + "analytics.edit",
	},
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		preset   string
		want     []string
	}{
		{"default", "", "", testSet[Edit]},
		{"named preset", "", "publish", testSet[Publish]},
		{"unknown preset falls back", "", "admin", testSet[Edit]},
		{"explicit overrides preset", "a,b", "readonly", []string{"a", "b"}},
		{"explicit keeps order and duplicates", " b, a  b\tc ,", "", []string{"b", "a", "b", "c"}},
		{"blank explicit ignored", "  ", "readonly", testSet[Readonly]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testSet.Resolve(tt.explicit, tt.preset))
		})
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	scopes := testSet.Resolve("", Edit)
	scopes[0] = "mutated"
	assert.Equal(t, ScopePrefix+"tagmanager.edit.containers", testSet[Edit][0])
}

func TestShortNames(t *testing.T) {
	assert.Equal(t,
		[]string{"tagmanager.publish", "openid", "custom/scope"},
		ShortNames([]string{ScopePrefix + "tagmanager.publish", "openid", ScopePrefix + "custom/scope"}))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"edit", "publish", "readonly"}, testSet.Names())
}
