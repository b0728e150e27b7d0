package selectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInvariants(t *testing.T) {
	ids := IDs()
	require.NotEmpty(t, ids)

	for _, id := range ids {
		target, err := Get(id)
		require.NoError(t, err)

		assert.NoError(t, target.Validate(), "target %s", id)
		assert.Equal(t, id, target.ID)
		assert.NotEmpty(t, target.Name)

		// Primary locators come first and every locator has a value.
		for _, list := range [][]Locator{target.Inputs, target.Submits, target.Responses} {
			require.NotEmpty(t, list)
			for _, loc := range list {
				assert.NotEmpty(t, loc.Value)
			}
		}
	}
}

func TestGetUnknownTarget(t *testing.T) {
	_, err := Get("copilot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")
}

func TestKnownTargets(t *testing.T) {
	assert.Equal(t, []string{"chatgpt", "claude", "gemini"}, IDs())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TargetDescriptor)
		wantErr string
	}{
		{"valid", func(*TargetDescriptor) {}, ""},
		{"missing id", func(d *TargetDescriptor) { d.ID = "" }, "missing ID"},
		{"missing url", func(d *TargetDescriptor) { d.URL = "" }, "missing URL"},
		{"no inputs", func(d *TargetDescriptor) { d.Inputs = nil }, "no input locators"},
		{"no submits", func(d *TargetDescriptor) { d.Submits = nil }, "no submit locators"},
		{"no responses", func(d *TargetDescriptor) { d.Responses = nil }, "no response locators"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := TargetDescriptor{
				ID:         "x",
				URL:        "https://example.com",
				NewChatURL: "https://example.com/new",
				Inputs:     []Locator{CSS("input")},
				Submits:    []Locator{CSS("button")},
				Responses:  []Locator{CSS(".response")},
			}
			tt.mutate(&d)

			err := d.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "css(div.x)", CSS("div.x").String())
	assert.Equal(t, "role(textbox)", Role("textbox").String())
	assert.Equal(t, "text(Send)", Text("Send").String())
}
