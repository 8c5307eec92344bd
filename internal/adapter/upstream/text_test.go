package upstream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Text
	}{
		{`null`, ""},
		{`"KLAM0000588"`, "KLAM0000588"},
		{`0.01`, "0.01"},
		{`1.0`, "1"},
		{`62.4`, "62.4"},
		{`-3`, "-3"},
		{`true`, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got Text
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestText_InStruct(t *testing.T) {
	var rec struct {
		Accuracy Text `json:"waterlevel_accuracy"`
		Missing  Text `json:"missing"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"waterlevel_accuracy": 0.1}`), &rec))
	assert.Equal(t, "0.1", rec.Accuracy.String())
	assert.Empty(t, rec.Missing)
}

func TestText_RejectsObjects(t *testing.T) {
	var got Text
	require.Error(t, json.Unmarshal([]byte(`{"a":1}`), &got))
}
