package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFieldPath(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		wantErr   error
		wantDepth int
		wantRoot  string
	}{
		{name: "top level", input: "name", wantDepth: 1, wantRoot: "name"},
		{name: "nested", input: "owner.address.city", wantDepth: 3, wantRoot: "owner"},
		{name: "document id", input: DocumentIDField, wantDepth: 1, wantRoot: DocumentIDField},
		{name: "empty", input: "", wantErr: ErrEmptyFieldPath},
		{name: "leading dot", input: ".name", wantErr: ErrInvalidFieldPathFormat},
		{name: "double dot", input: "owner..name", wantErr: ErrInvalidFieldPathFormat},
		{name: "slash", input: "owner/name", wantErr: ErrInvalidFieldName},
		{name: "reserved prefix", input: "__meta", wantErr: ErrInvalidFieldName},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fp, err := NewFieldPath(tc.input)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.input, fp.String())
			assert.Equal(t, tc.wantDepth, fp.Depth())
			assert.Equal(t, tc.wantRoot, fp.Root())
		})
	}
}

func TestFieldPath_ParentAndChild(t *testing.T) {
	fp := MustNewFieldPath("owner.address")
	child, err := fp.Child("city")
	require.NoError(t, err)
	assert.Equal(t, "owner.address.city", child.String())
	assert.Equal(t, []string{"owner", "address"}, fp.Segments())

	other, err := fp.Child("zip")
	require.NoError(t, err)
	assert.Equal(t, "owner.address.city", child.String())
	assert.Equal(t, "owner.address.zip", other.String())

	assert.Equal(t, "owner", fp.Parent().String())
	assert.Nil(t, MustNewFieldPath("owner").Parent())

	_, err = fp.Child("a/b")
	assert.ErrorIs(t, err, ErrInvalidFieldName)
}

func TestFieldPath_Lookup(t *testing.T) {
	data := map[string]interface{}{
		"owner": map[string]interface{}{"name": "Ann", "tags": []interface{}{"a"}},
		"count": 2,
	}

	v, ok := MustNewFieldPath("owner.name").Lookup(data)
	assert.True(t, ok)
	assert.Equal(t, "Ann", v)

	_, ok = MustNewFieldPath("owner.missing").Lookup(data)
	assert.False(t, ok)

	_, ok = MustNewFieldPath("count.value").Lookup(data)
	assert.False(t, ok)
}

func TestMustNewFieldPath_Panic(t *testing.T) {
	assert.Panics(t, func() { MustNewFieldPath("") })
}
