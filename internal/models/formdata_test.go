package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormData_KeepsPostedOrder(t *testing.T) {
	var f FormData
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Priya","email":"priya@example.com","product":"Saree"}`), &f))

	assert.Equal(t, []string{"name", "email", "product"}, f.Keys)
	assert.Equal(t, "priya@example.com", f.Get("email"))
	assert.Equal(t, "", f.Get("phone"))

	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Priya","email":"priya@example.com","product":"Saree"}`, string(out))
}

func TestFormData_RepeatedKey(t *testing.T) {
	var f FormData
	require.NoError(t, json.Unmarshal([]byte(`{"b":"1","a":"2","b":"3"}`), &f))

	assert.Equal(t, []string{"b", "a"}, f.Keys)
	assert.Equal(t, "3", f.Get("b"))
}

func TestFormData_Invalid(t *testing.T) {
	tests := map[string]string{
		"array":        `["a"]`,
		"number value": `{"age":41}`,
		"nested":       `{"address":{"city":"Malmö"}}`,
		"truncated":    `{"name":"Anna"`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			var f FormData
			assert.Error(t, json.Unmarshal([]byte(in), &f))
		})
	}
}

func TestFormData_Null(t *testing.T) {
	var f FormData
	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.Nil(t, f.Values)
	assert.Nil(t, f.Keys)
}

func TestOrderedKeys(t *testing.T) {
	values := map[string]string{"name": "", "email": "", "zip": "", "city": ""}

	assert.Equal(t, []string{"email", "name", "city", "zip"}, orderedKeys([]string{"email", "gone", "name", "email"}, values))
	assert.Equal(t, []string{"city", "email", "name", "zip"}, orderedKeys(nil, values))
	assert.Nil(t, orderedKeys([]string{"name"}, nil))
}
