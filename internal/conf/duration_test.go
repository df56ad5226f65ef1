package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_JSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Timeout Duration `json:"timeout"`
	}

	in := wrapper{Timeout: Duration(90 * time.Second)}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"timeout":"1m30s"}`, string(data))

	var out wrapper
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Timeout, out.Timeout)
}

func TestDuration_UnmarshalJSONVariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"string", `"30s"`, 30 * time.Second, false},
		{"nanoseconds number", `30000000000`, 30 * time.Second, false},
		{"null resets", `null`, 0, false},
		{"garbage string", `"banana"`, 0, true},
		{"bool", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Std())
		})
	}
}

func TestDuration_YAML(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte("5m"), &d))
	assert.Equal(t, 5*time.Minute, d.Std())

	// Bare integers are nanoseconds
	require.NoError(t, yaml.Unmarshal([]byte("30000000000"), &d))
	assert.Equal(t, 30*time.Second, d.Std())

	out, err := yaml.Marshal(Duration(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "1h0m0s\n", string(out))
}
